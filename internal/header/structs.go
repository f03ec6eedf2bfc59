package header

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/danmuck/litelog/internal/protocol/schema"
)

// Diagnostic kinds. None of them is fatal.
const (
	DiagUnsupportedType        = "unsupported_type"
	DiagUnsupportedDeclaration = "unsupported_declaration"
	DiagEmptyStruct            = "empty_struct"
	DiagDiscriminantConflict   = "discriminant_conflict"
)

// Diagnostic describes a construct that was skipped while building schemas.
type Diagnostic struct {
	Kind   string
	Struct string
	Field  string
	Type   string
	Line   int
	Detail string
}

func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "line %d: %s: struct %s", d.Line, d.Kind, d.Struct)
	if d.Field != "" {
		fmt.Fprintf(&b, " field %s", d.Field)
	}
	if d.Type != "" {
		fmt.Fprintf(&b, " type %s", d.Type)
	}
	if d.Detail != "" {
		fmt.Fprintf(&b, ": %s", d.Detail)
	}
	return b.String()
}

// StructBlock is one discovered `typedef struct { ... } Name` in source order.
type StructBlock struct {
	Index int
	Name  string
	Body  string
	// Line is the 1-based line of the typedef keyword.
	Line int
	// bodyLine is the line the body text starts on.
	bodyLine int
}

var (
	structBlockRe  = regexp.MustCompile(`typedef\s+struct\s*\{([^}]*)\}\s*([A-Za-z0-9_]+)`)
	declRe         = regexp.MustCompile(`^(\w+)\s+(\w+)\s*(?:\[\s*(\d+)\s*\])?(.*)$`)
	annotationRe   = regexp.MustCompile(`litelog:type\s*=\s*(\d+)`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// Discover returns every flat struct block in source order. Index is the
// positional discriminant.
func Discover(src string) []StructBlock {
	locs := structBlockRe.FindAllStringSubmatchIndex(src, -1)
	out := make([]StructBlock, 0, len(locs))
	for i, loc := range locs {
		out = append(out, StructBlock{
			Index:    i,
			Name:     src[loc[4]:loc[5]],
			Body:     src[loc[2]:loc[3]],
			Line:     lineAt(src, loc[0]),
			bodyLine: lineAt(src, loc[2]),
		})
	}
	return out
}

// ParseStructs builds one record per struct block with at least one usable
// field. The returned records are in source order.
func ParseStructs(src string) ([]schema.Record, []Diagnostic) {
	return buildRecords(Discover(src))
}

func buildRecords(blocks []StructBlock) ([]schema.Record, []Diagnostic) {
	var diags []Diagnostic
	records := make([]schema.Record, 0, len(blocks))
	explicit := make(map[int]string)

	for _, blk := range blocks {
		rec, d := parseBlock(blk)
		diags = append(diags, d...)
		if len(rec.Fields) == 0 {
			diags = append(diags, Diagnostic{Kind: DiagEmptyStruct, Struct: blk.Name, Line: blk.Line})
			continue
		}
		if rec.Explicit {
			if prev, ok := explicit[rec.ID]; ok {
				diags = append(diags, Diagnostic{
					Kind:   DiagDiscriminantConflict,
					Struct: prev,
					Line:   blk.Line,
					Detail: fmt.Sprintf("type %d reassigned to %s", rec.ID, blk.Name),
				})
			}
			explicit[rec.ID] = blk.Name
		}
		records = append(records, rec)
	}

	out := records[:0]
	for _, rec := range records {
		if owner, ok := explicit[rec.ID]; ok && !rec.Explicit {
			diags = append(diags, Diagnostic{
				Kind:   DiagDiscriminantConflict,
				Struct: rec.Name,
				Detail: fmt.Sprintf("positional type %d claimed by %s", rec.ID, owner),
			})
			continue
		}
		out = append(out, rec)
	}
	return out, diags
}

func parseBlock(blk StructBlock) (schema.Record, []Diagnostic) {
	rec := schema.Record{ID: blk.Index, Name: blk.Name}
	if m := annotationRe.FindStringSubmatch(blk.Body); m != nil {
		if id, err := strconv.Atoi(m[1]); err == nil {
			rec.ID = id
			rec.Explicit = true
		}
	}

	var diags []Diagnostic
	body := blockCommentRe.ReplaceAllStringFunc(blk.Body, func(c string) string {
		// keep line numbering stable
		return strings.Repeat("\n", strings.Count(c, "\n"))
	})
	for i, line := range strings.Split(body, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		decls := strings.Split(line, ";")
		// the piece after the last ';' is not a terminated declaration
		for _, decl := range decls[:len(decls)-1] {
			decl = strings.TrimSpace(decl)
			if decl == "" {
				continue
			}
			f, d, ok := parseDecl(decl)
			if !ok {
				if d != nil {
					d.Struct = blk.Name
					d.Line = blk.bodyLine + i
					diags = append(diags, *d)
				}
				continue
			}
			rec.Fields = append(rec.Fields, f)
		}
	}
	return rec, diags
}

func parseDecl(decl string) (schema.Field, *Diagnostic, bool) {
	m := declRe.FindStringSubmatch(decl)
	if m == nil {
		return schema.Field{}, nil, false
	}
	ctype, name, arrLen, rest := m[1], m[2], m[3], strings.TrimSpace(m[4])
	if rest != "" {
		return schema.Field{}, &Diagnostic{
			Kind:   DiagUnsupportedDeclaration,
			Field:  name,
			Type:   ctype,
			Detail: decl,
		}, false
	}

	if ctype == "char" && arrLen != "" {
		n, err := strconv.Atoi(arrLen)
		if err != nil || n <= 0 {
			return schema.Field{}, &Diagnostic{Kind: DiagUnsupportedDeclaration, Field: name, Type: ctype, Detail: decl}, false
		}
		return schema.Field{Name: name, Encoding: schema.EncodingBytes, Len: n}, nil, true
	}
	if enc, ok := schema.EncodingForCType(ctype); ok && arrLen == "" {
		return schema.Field{Name: name, Encoding: enc}, nil, true
	}
	return schema.Field{}, &Diagnostic{Kind: DiagUnsupportedType, Field: name, Type: ctype}, false
}

func lineAt(src string, offset int) int {
	return strings.Count(src[:offset], "\n") + 1
}
