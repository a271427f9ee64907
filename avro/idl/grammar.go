package idl

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var idlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*|/\*([^*]|\*+[^*/])*\*+/`},
	{Name: "Annotation", Pattern: `@[a-zA-Z_][\w-]*`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Number", Pattern: `[-+]?(\d+\.\d*|\.\d+|\d+)([eE][-+]?\d+)?`},
	{Name: "Ident", Pattern: "`[^`]+`|[a-zA-Z_]\\w*(\\.[a-zA-Z_]\\w*)*"},
	{Name: "Punct", Pattern: `[{}()<>\[\],;=?:]`},
	{Name: "Whitespace", Pattern: `[ \r\n\t]+`},
})

var idlParser = participle.MustBuild[idlFile](
	participle.Lexer(idlLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.Unquote("String"),
)

type idlFile struct {
	Namespace *string    `parser:"( 'namespace' @Ident ';' )?"`
	Main      *idlType   `parser:"( 'schema' @@ ';' )?"`
	Decls     []*idlDecl `parser:"@@*"`
}

type idlDecl struct {
	Annotations []*idlAnnotation `parser:"@@*"`
	Body        *idlDeclBody     `parser:"@@"`
}

type idlDeclBody struct {
	Record *idlRecord `parser:"  @@"`
	Enum   *idlEnum   `parser:"| @@"`
	Fixed  *idlFixed  `parser:"| @@"`
}

type idlRecord struct {
	Kind   string      `parser:"@( 'record' | 'error' )"`
	Name   string      `parser:"@Ident"`
	Fields []*idlField `parser:"'{' @@* '}'"`
}

type idlField struct {
	Type        *idlType         `parser:"@@"`
	Annotations []*idlAnnotation `parser:"@@*"`
	Name        string           `parser:"@Ident"`
	Default     *idlValue        `parser:"( '=' @@ )? ';'"`
}

type idlEnum struct {
	Name    string   `parser:"'enum' @Ident"`
	Symbols []string `parser:"'{' ( @Ident ( ',' @Ident )* )? '}'"`
	Default *string  `parser:"( '=' @Ident ';' )?"`
}

type idlFixed struct {
	Name string `parser:"'fixed' @Ident"`
	Size int    `parser:"'(' @Number ')' ';'"`
}

type idlType struct {
	Annotations []*idlAnnotation `parser:"@@*"`
	Body        *idlTypeBody     `parser:"@@"`
	Optional    bool             `parser:"@'?'?"`
}

type idlTypeBody struct {
	Array   *idlType    `parser:"  'array' '<' @@ '>'"`
	Map     *idlType    `parser:"| 'map' '<' @@ '>'"`
	Union   []*idlType  `parser:"| 'union' '{' @@ ( ',' @@ )* '}'"`
	Decimal *idlDecimal `parser:"| 'decimal' @@"`
	Name    string      `parser:"| @Ident"`
}

type idlDecimal struct {
	Precision int `parser:"'(' @Number"`
	Scale     int `parser:"( ',' @Number )? ')'"`
}

type idlAnnotation struct {
	Name  string    `parser:"@Annotation"`
	Value *idlValue `parser:"'(' @@ ')'"`
}

// idlValue is a JSON literal (defaults and annotation arguments).
type idlValue struct {
	String *string    `parser:"  @String"`
	Number *string    `parser:"| @Number"`
	Bool   *string    `parser:"| @( 'true' | 'false' )"`
	Null   bool       `parser:"| @'null'"`
	Array  *idlArray  `parser:"| @@"`
	Object *idlObject `parser:"| @@"`
}

type idlArray struct {
	Open  string      `parser:"@'['"`
	Items []*idlValue `parser:"( @@ ( ',' @@ )* )? ']'"`
}

type idlObject struct {
	Open    string       `parser:"@'{'"`
	Members []*idlMember `parser:"( @@ ( ',' @@ )* )? '}'"`
}

type idlMember struct {
	Key   string    `parser:"@String ':'"`
	Value *idlValue `parser:"@@"`
}
