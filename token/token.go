// SPDX-License-Identifier: Apache-2.0
// Copyright 2021 The Kubernetes Authors

// Package token defines the lexical token kinds produced by the lexer for
// the USDA textual encoding, adapted from the teacher's lexer token-kind
// enumeration (k8s.io/idl/kdlc/lexer) but re-cut for USD's grammar instead
// of cKDL's.
package token

// Kind identifies the lexical class of a Token.
type Kind int

const (
	EOF Kind = iota
	Illegal

	Ident     // bare identifier: foo, _bar, xformOp:translate
	TypeIdent // capitalized identifier used in type position: Xform, GeomMesh
	Number
	String       // 'single' or "double" quoted
	TripleString // '''...''' or """...""" quoted
	AssetPath    // @some/path.usd@
	PathLiteral  // </A/B.prop[target]>

	KwDef
	KwOver
	KwClass
	KwUniform
	KwCustom
	KwVarying
	KwRel
	KwVariantSet
	KwVariantSets
	KwAdd
	KwDelete
	KwAppend
	KwPrepend
	KwReorder
	KwTrue
	KwFalse
	KwNone
	KwDictionary
	KwMagic // the "#usda" line

	LBrace
	RBrace
	LParen
	RParen
	LBracket
	RBracket
	LAngle
	RAngle
	Equals
	Comma
	Dot
	Colon
	At
)

var names = map[Kind]string{
	EOF: "<eof>", Illegal: "<illegal>",
	Ident: "<ident>", TypeIdent: "<type-ident>", Number: "<number>",
	String: "<string>", TripleString: "<triple-string>",
	AssetPath: "<asset-path>", PathLiteral: "<path>",
	KwDef: "def", KwOver: "over", KwClass: "class", KwUniform: "uniform",
	KwCustom: "custom", KwVarying: "varying", KwRel: "rel",
	KwVariantSet: "variantSet", KwVariantSets: "variantSets",
	KwAdd: "add", KwDelete: "delete", KwAppend: "append", KwPrepend: "prepend",
	KwReorder: "reorder", KwTrue: "true", KwFalse: "false", KwNone: "None",
	KwDictionary: "dictionary", KwMagic: "#usda",
	LBrace: "{", RBrace: "}", LParen: "(", RParen: ")",
	LBracket: "[", RBracket: "]", LAngle: "<", RAngle: ">",
	Equals: "=", Comma: ",", Dot: ".", Colon: ":", At: "@",
}

func (k Kind) String() string {
	if n, ok := names[k]; ok {
		return n
	}
	return "<unknown-token>"
}

// keywords maps the reserved words recognized in the grammar. Identifiers
// that don't match are just Ident/TypeIdent depending on case of the first
// rune.
var keywords = map[string]Kind{
	"def": KwDef, "over": KwOver, "class": KwClass,
	"uniform": KwUniform, "custom": KwCustom, "varying": KwVarying,
	"rel": KwRel, "variantSet": KwVariantSet, "variantSets": KwVariantSets,
	"add": KwAdd, "delete": KwDelete, "append": KwAppend,
	"prepend": KwPrepend, "reorder": KwReorder,
	"true": KwTrue, "false": KwFalse, "None": KwNone,
	"dictionary": KwDictionary,
}

// Lookup returns the keyword Kind for word, and whether it is one.
func Lookup(word string) (Kind, bool) {
	k, ok := keywords[word]
	return k, ok
}
