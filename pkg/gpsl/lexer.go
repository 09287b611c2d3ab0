package gpsl

import (
	"fmt"
	"io"
	"strconv"
	"unicode"
)

// position records where a token or node began in the source,
// with 1-based line and column numbers.
type position struct {
	line, col int
}

func (p position) String() string {
	return fmt.Sprintf("%d:%d", p.line, p.col)
}

// Kind is the sum type of all token and operator kinds in GPSL.
type Kind int

const (
	Separator Kind = iota // ;

	Identifier
	NumberLiteral
	TextLiteral

	FnKeyword
	LetKeyword
	ReturnKeyword
	IfKeyword
	ElseKeyword
	WhileKeyword
	ForKeyword
	AcceptKeyword
	RejectKeyword

	AddOp
	SubtractOp
	MultiplyOp
	DivideOp
	AssignOp
	EqualOp
	NotEqualOp
	LessThanOp
	LessEqOp

	LeftParen
	RightParen
	LeftBrace
	RightBrace
	Comma
	Colon
)

func (kind Kind) String() string {
	switch kind {
	case Separator:
		return "';'"
	case Identifier:
		return "identifier"
	case NumberLiteral:
		return "number literal"
	case TextLiteral:
		return "text literal"
	case FnKeyword:
		return "'fn'"
	case LetKeyword:
		return "'let'"
	case ReturnKeyword:
		return "'return'"
	case IfKeyword:
		return "'if'"
	case ElseKeyword:
		return "'else'"
	case WhileKeyword:
		return "'while'"
	case ForKeyword:
		return "'for'"
	case AcceptKeyword:
		return "'accept'"
	case RejectKeyword:
		return "'reject'"
	case AddOp:
		return "'+'"
	case SubtractOp:
		return "'-'"
	case MultiplyOp:
		return "'*'"
	case DivideOp:
		return "'/'"
	case AssignOp:
		return "'='"
	case EqualOp:
		return "'=='"
	case NotEqualOp:
		return "'!='"
	case LessThanOp:
		return "'<'"
	case LessEqOp:
		return "'<='"
	case LeftParen:
		return "'('"
	case RightParen:
		return "')'"
	case LeftBrace:
		return "'{'"
	case RightBrace:
		return "'}'"
	case Comma:
		return "','"
	case Colon:
		return "':'"
	default:
		return "unknown token"
	}
}

// Tok is a single lexed token. str carries identifier names and text
// literal contents; num carries number literal values.
type Tok struct {
	kind Kind
	str  string
	num  uint64
	position
}

func (tok Tok) String() string {
	switch tok.kind {
	case Identifier:
		return fmt.Sprintf("identifier '%s' [%s]", tok.str, tok.position)
	case NumberLiteral:
		return fmt.Sprintf("number %d [%s]", tok.num, tok.position)
	case TextLiteral:
		return fmt.Sprintf("text %s [%s]", strconv.Quote(tok.str), tok.position)
	default:
		return fmt.Sprintf("%s [%s]", tok.kind, tok.position)
	}
}

var keywords = map[string]Kind{
	"fn":     FnKeyword,
	"let":    LetKeyword,
	"return": ReturnKeyword,
	"if":     IfKeyword,
	"else":   ElseKeyword,
	"while":  WhileKeyword,
	"for":    ForKeyword,
	"accept": AcceptKeyword,
	"reject": RejectKeyword,
}

func isValidIdentifierStart(char rune) bool {
	return unicode.IsLetter(char) || char == '_'
}

func isValidIdentifierChar(char rune) bool {
	return unicode.IsLetter(char) || unicode.IsDigit(char) || char == '_'
}

// Tokenize transforms GPSL source text into a slice of Tok.
// Lexical errors carry ErrSyntax and the 1-based position of the
// offending character.
func Tokenize(input io.Reader) ([]Tok, error) {
	buf, err := io.ReadAll(input)
	if err != nil {
		return nil, Err{
			ErrSystem,
			fmt.Sprintf("could not read source input\n\t-> %s", err),
		}
	}

	src := []rune(string(buf))
	tokens := make([]Tok, 0)

	idx, length := 0, len(src)
	line, col := 1, 1

	// advance moves past the rune at idx, tracking line/col
	advance := func() {
		if src[idx] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
		idx++
	}

	simpleTok := func(kind Kind) {
		tokens = append(tokens, Tok{
			kind:     kind,
			position: position{line, col},
		})
		advance()
	}

	for idx < length {
		char := src[idx]
		switch {
		case char == ' ' || char == '\t' || char == '\r' || char == '\n':
			advance()
		case char == '/' && idx+1 < length && src[idx+1] == '/':
			// line comment, discard to end of line
			for idx < length && src[idx] != '\n' {
				advance()
			}
		case unicode.IsDigit(char):
			start := position{line, col}
			lit := make([]rune, 0)
			for idx < length && unicode.IsDigit(src[idx]) {
				lit = append(lit, src[idx])
				advance()
			}
			num, err := strconv.ParseUint(string(lit), 10, 64)
			if err != nil {
				return nil, Err{
					ErrSyntax,
					fmt.Sprintf("number literal %s is out of range [%s]", string(lit), start),
				}
			}
			tokens = append(tokens, Tok{
				kind:     NumberLiteral,
				num:      num,
				position: start,
			})
		case isValidIdentifierStart(char):
			start := position{line, col}
			lit := make([]rune, 0)
			for idx < length && isValidIdentifierChar(src[idx]) {
				lit = append(lit, src[idx])
				advance()
			}
			word := string(lit)
			if kind, isKeyword := keywords[word]; isKeyword {
				tokens = append(tokens, Tok{
					kind:     kind,
					position: start,
				})
			} else {
				tokens = append(tokens, Tok{
					kind:     Identifier,
					str:      word,
					position: start,
				})
			}
		case char == '"':
			start := position{line, col}
			advance() // opening quote
			lit := make([]rune, 0)
			for {
				if idx >= length {
					return nil, Err{
						ErrSyntax,
						fmt.Sprintf("unterminated text literal [%s]", start),
					}
				}
				if src[idx] == '"' {
					break
				}
				if src[idx] == '\\' {
					advance()
					if idx >= length {
						return nil, Err{
							ErrSyntax,
							fmt.Sprintf("unterminated text literal [%s]", start),
						}
					}
					switch src[idx] {
					case 'n':
						lit = append(lit, '\n')
					case 't':
						lit = append(lit, '\t')
					case '"':
						lit = append(lit, '"')
					case '\\':
						lit = append(lit, '\\')
					default:
						return nil, Err{
							ErrSyntax,
							fmt.Sprintf("unknown escape \\%c in text literal [%s]",
								src[idx], position{line, col}),
						}
					}
					advance()
					continue
				}
				lit = append(lit, src[idx])
				advance()
			}
			advance() // closing quote
			tokens = append(tokens, Tok{
				kind:     TextLiteral,
				str:      string(lit),
				position: start,
			})
		case char == '=':
			if idx+1 < length && src[idx+1] == '=' {
				tokens = append(tokens, Tok{
					kind:     EqualOp,
					position: position{line, col},
				})
				advance()
				advance()
			} else {
				simpleTok(AssignOp)
			}
		case char == '!':
			if idx+1 < length && src[idx+1] == '=' {
				tokens = append(tokens, Tok{
					kind:     NotEqualOp,
					position: position{line, col},
				})
				advance()
				advance()
			} else {
				return nil, Err{
					ErrSyntax,
					fmt.Sprintf("unexpected character '!' [%s]", position{line, col}),
				}
			}
		case char == '<':
			if idx+1 < length && src[idx+1] == '=' {
				tokens = append(tokens, Tok{
					kind:     LessEqOp,
					position: position{line, col},
				})
				advance()
				advance()
			} else {
				simpleTok(LessThanOp)
			}
		case char == '+':
			simpleTok(AddOp)
		case char == '-':
			simpleTok(SubtractOp)
		case char == '*':
			simpleTok(MultiplyOp)
		case char == '/':
			simpleTok(DivideOp)
		case char == '(':
			simpleTok(LeftParen)
		case char == ')':
			simpleTok(RightParen)
		case char == '{':
			simpleTok(LeftBrace)
		case char == '}':
			simpleTok(RightBrace)
		case char == ',':
			simpleTok(Comma)
		case char == ':':
			simpleTok(Colon)
		case char == ';':
			simpleTok(Separator)
		default:
			return nil, Err{
				ErrSyntax,
				fmt.Sprintf("unexpected character '%c' [%s]", char, position{line, col}),
			}
		}
	}

	return tokens, nil
}
