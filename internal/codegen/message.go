package codegen

import (
	"sort"
	"strconv"
	"strings"

	"github.com/solatis/ensuregen/internal/rules"
	"github.com/solatis/ensuregen/internal/types"
)

// Standard placeholders available to every message.
const (
	placeholderTargetName  = "TargetName"
	placeholderTargetValue = "TargetValue"
)

// messageInput is everything a message template may refer to.
type messageInput struct {
	template     string
	expr         bool // template is a Go expression, substituted at runtime
	targetName   string
	value        string // accessor of the validated value
	valueType    string
	placeholders map[string]string // token -> parameter name
	arg          func(param string) (types.ArgumentValue, bool)
}

// segment is literal text or a Go string expression.
type segment struct {
	text string
	hole bool
}

// renderMessage returns a Go expression of type string.
//
// Literal templates are substituted now: literal arguments are baked in and
// anything known only at runtime becomes a hole in a single concatenation.
// Expression templates get one strings.ReplaceAll per known placeholder.
// Placeholders with nothing bound stay in the text as written.
func (a *assembler) renderMessage(in messageInput) string {
	if in.expr {
		return a.renderMessageExpr(in)
	}

	var segs []segment
	addText := func(s string) {
		if s == "" {
			return
		}
		if n := len(segs); n > 0 && !segs[n-1].hole {
			segs[n-1].text += s
			return
		}
		segs = append(segs, segment{text: s})
	}

	rest := in.template
	for rest != "" {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			addText(rest)
			break
		}
		closing := strings.IndexByte(rest[open:], '}')
		if closing < 0 {
			addText(rest)
			break
		}
		addText(rest[:open])
		token := rest[open+1 : open+closing]
		raw := rest[open : open+closing+1]
		rest = rest[open+closing+1:]

		switch {
		case token == placeholderTargetName:
			addText(in.targetName)
		case token == placeholderTargetValue:
			segs = append(segs, segment{text: stringify(in.value, in.valueType), hole: true})
		default:
			param, ok := in.placeholders[token]
			if !ok {
				addText(raw)
				continue
			}
			arg, ok := in.arg(param)
			if !ok {
				addText(raw)
				continue
			}
			if text, ok := literalArgText(arg); ok {
				addText(text)
				continue
			}
			segs = append(segs, segment{text: stringify(arg.Expr, arg.Type), hole: true})
		}
	}

	if len(segs) == 0 {
		return `""`
	}
	parts := make([]string, len(segs))
	for i, s := range segs {
		if s.hole {
			parts[i] = s.text
		} else {
			parts[i] = strconv.Quote(s.text)
		}
	}
	return strings.Join(parts, " + ")
}

func (a *assembler) renderMessageExpr(in messageInput) string {
	a.use("strings", "")
	out := in.template
	replace := func(token, value string) {
		out = "strings.ReplaceAll(" + out + ", " + strconv.Quote("{"+token+"}") + ", " + value + ")"
	}
	replace(placeholderTargetName, strconv.Quote(in.targetName))
	replace(placeholderTargetValue, stringify(in.value, in.valueType))

	tokens := make([]string, 0, len(in.placeholders))
	for token := range in.placeholders {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	for _, token := range tokens {
		arg, ok := in.arg(in.placeholders[token])
		if !ok {
			continue
		}
		if text, ok := literalArgText(arg); ok {
			replace(token, strconv.Quote(text))
			continue
		}
		replace(token, stringify(arg.Expr, arg.Type))
	}
	return out
}

// stringify renders expr as a string expression; textual values pass through.
func stringify(expr, typ string) string {
	if strings.TrimSpace(typ) == "string" {
		return expr
	}
	return "valid.Stringify(" + expr + ")"
}

// literalArgText is the text a literal argument contributes to a message.
func literalArgText(a types.ArgumentValue) (string, bool) {
	if !a.Literal {
		return "", false
	}
	if s, err := strconv.Unquote(a.Expr); err == nil {
		return s, true
	}
	return a.Expr, true
}

// ruleMessage builds the messageInput for a resolved rule.
func ruleMessage(r rules.ResolvedRule, targetName, value, valueType string) messageInput {
	return messageInput{
		template:     r.Message,
		expr:         r.MessageExpr,
		targetName:   targetName,
		value:        value,
		valueType:    valueType,
		placeholders: r.Placeholders,
		arg:          r.Arg,
	}
}
