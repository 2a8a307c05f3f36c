package sandbox

import (
	"context"
	"fmt"
	"log/slog"

	lua "github.com/Shopify/go-lua"

	"github.com/vk/modgate/internal/schema"
)

// schemaTypeName is the metatable key for schema userdata values.
const schemaTypeName = "modgate.schema"

// registerSchemaLibrary installs the `schema` global: the builder table plus
// the shared metatable that gives schema userdata its refinement methods.
func registerSchemaLibrary(l *lua.State) {
	lua.NewMetaTable(l, schemaTypeName)
	l.NewTable()
	lua.SetFunctions(l, schemaMethods, 0)
	l.SetField(-2, "__index")
	l.Pop(1)

	l.NewTable()
	lua.SetFunctions(l, schemaBuilders, 0)
	l.SetGlobal("schema")
}

// registerLogger installs the `log` global bound to the given logger. This
// is the only host side effect reachable from inside a sandbox.
func registerLogger(l *lua.State, logger *slog.Logger) {
	l.NewTable()
	lua.SetFunctions(l, []lua.RegistryFunction{
		{Name: "debug", Function: logFn(logger, slog.LevelDebug)},
		{Name: "info", Function: logFn(logger, slog.LevelInfo)},
		{Name: "warn", Function: logFn(logger, slog.LevelWarn)},
		{Name: "error", Function: logFn(logger, slog.LevelError)},
	}, 0)
	l.SetGlobal("log")
}

func logFn(logger *slog.Logger, level slog.Level) lua.Function {
	return func(l *lua.State) int {
		msg := lua.CheckString(l, 1)
		if l.Top() >= 2 {
			logger.Log(context.Background(), level, msg, "value", toGoValue(l, 2))
		} else {
			logger.Log(context.Background(), level, msg)
		}
		return 0
	}
}

var schemaBuilders = []lua.RegistryFunction{
	{Name: "object", Function: schemaObject},
	{Name: "string", Function: schemaString},
	{Name: "number", Function: schemaNumber},
	{Name: "boolean", Function: schemaBoolean},
}

var schemaMethods = []lua.RegistryFunction{
	{Name: "email", Function: schemaEmail},
	{Name: "min", Function: schemaMin},
	{Name: "max", Function: schemaMax},
	{Name: "int", Function: schemaInt},
	{Name: "optional", Function: schemaOptional},
}

func pushSchema(l *lua.State, s schema.Schema) {
	l.PushUserData(s)
	lua.SetMetaTableNamed(l, schemaTypeName)
}

func checkSchema(l *lua.State, index int) schema.Schema {
	if s, ok := l.ToUserData(index).(schema.Schema); ok {
		return s
	}
	lua.Errorf(l, "expected a schema value")
	panic("unreachable")
}

func schemaObject(l *lua.State) int {
	lua.CheckType(l, 1, lua.TypeTable)
	fields, err := fieldsFromTable(l, 1)
	if err != nil {
		lua.Errorf(l, "%s", err.Error())
		panic("unreachable")
	}
	pushSchema(l, schema.Object(fields))
	return 1
}

func schemaString(l *lua.State) int {
	pushSchema(l, schema.String())
	return 1
}

func schemaNumber(l *lua.State) int {
	pushSchema(l, schema.Number())
	return 1
}

func schemaBoolean(l *lua.State) int {
	pushSchema(l, schema.Bool())
	return 1
}

func schemaEmail(l *lua.State) int {
	s, ok := checkSchema(l, 1).(*schema.StringSchema)
	if !ok {
		lua.Errorf(l, "email() requires a string schema")
		panic("unreachable")
	}
	pushSchema(l, s.Email())
	return 1
}

func schemaMin(l *lua.State) int {
	bound := lua.CheckNumber(l, 2)
	switch s := checkSchema(l, 1).(type) {
	case *schema.StringSchema:
		pushSchema(l, s.Min(int(bound)))
	case *schema.NumberSchema:
		pushSchema(l, s.Min(bound))
	default:
		lua.Errorf(l, "min() requires a string or number schema")
		panic("unreachable")
	}
	return 1
}

func schemaMax(l *lua.State) int {
	bound := lua.CheckNumber(l, 2)
	switch s := checkSchema(l, 1).(type) {
	case *schema.StringSchema:
		pushSchema(l, s.Max(int(bound)))
	case *schema.NumberSchema:
		pushSchema(l, s.Max(bound))
	default:
		lua.Errorf(l, "max() requires a string or number schema")
		panic("unreachable")
	}
	return 1
}

func schemaInt(l *lua.State) int {
	s, ok := checkSchema(l, 1).(*schema.NumberSchema)
	if !ok {
		lua.Errorf(l, "int() requires a number schema")
		panic("unreachable")
	}
	pushSchema(l, s.Int())
	return 1
}

func schemaOptional(l *lua.State) int {
	pushSchema(l, schema.Optional(checkSchema(l, 1)))
	return 1
}

// fieldsFromTable reads a Lua table of field name → schema userdata. It is
// shared by the schema.object builder and by the shorthand form where a
// module's body is a plain table of schemas.
func fieldsFromTable(l *lua.State, index int) (map[string]schema.Schema, error) {
	index = l.AbsIndex(index)
	fields := map[string]schema.Schema{}

	l.PushNil()
	for l.Next(index) {
		if l.TypeOf(-2) != lua.TypeString {
			l.Pop(2)
			return nil, fmt.Errorf("object field names must be strings")
		}
		name, _ := l.ToString(-2)
		s, ok := l.ToUserData(-1).(schema.Schema)
		if !ok {
			l.Pop(2)
			return nil, fmt.Errorf("field %q is not a schema value", name)
		}
		fields[name] = s
		l.Pop(1)
	}

	return fields, nil
}
