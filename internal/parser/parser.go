// Package parser reads post-processing directives: the select list, GROUP BY
// and ORDER BY clauses that shape an already materialized result table.
package parser

import (
	"fmt"
	"strings"

	"github.com/zakazai/hwdb-rtab/internal/lexer"
	"github.com/zakazai/hwdb-rtab/internal/query"
)

// Item is one entry of the select list
type Item struct {
	Column    string
	Aggregate query.Aggregate
	CountStar bool
}

// Name returns the column name the item has in the result
func (i Item) Name() string {
	switch {
	case i.CountStar:
		return query.CountStarColumn
	case i.Aggregate != query.AggNone:
		return i.Aggregate.Prefix() + "(" + i.Column + ")"
	default:
		return i.Column
	}
}

// Directive describes how to post-process a result table. An empty Items
// list keeps every column.
type Directive struct {
	Items   []Item
	GroupBy []string
	OrderBy string
}

// CountStar reports whether the select list asks for count(*)
func (d *Directive) CountStar() bool {
	for _, item := range d.Items {
		if item.CountStar {
			return true
		}
	}
	return false
}

// HasAggregates reports whether any item applies min, max, avg or sum
func (d *Directive) HasAggregates() bool {
	for _, item := range d.Items {
		if item.Aggregate != query.AggNone {
			return true
		}
	}
	return false
}

// Parser represents a directive parser
type Parser struct {
	l   *lexer.Lexer
	tok lexer.Token
}

// New creates a new parser with the given lexer
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.next()
	return p
}

func (p *Parser) next() {
	p.tok = p.l.NextToken()
}

func (p *Parser) isKeyword(word string) bool {
	return p.tok.Type == lexer.KEYWORD && p.tok.Literal == word
}

func (p *Parser) expectKeyword(word string) error {
	if !p.isKeyword(word) {
		return fmt.Errorf("expected %s, got %q", word, p.tok.Literal)
	}
	p.next()
	return nil
}

func (p *Parser) expect(tt lexer.TokenType) error {
	if p.tok.Type != tt {
		return fmt.Errorf("expected %s, got %q", tt, p.tok.Literal)
	}
	p.next()
	return nil
}

// name accepts a bare identifier or a quoted name
func (p *Parser) name() (string, error) {
	if p.tok.Type != lexer.IDENTIFIER && p.tok.Type != lexer.STRING {
		return "", fmt.Errorf("expected column name, got %q", p.tok.Literal)
	}
	n := p.tok.Literal
	p.next()
	return n, nil
}

// Parse parses a complete directive
func (p *Parser) Parse() (*Directive, error) {
	d := &Directive{}

	if p.isKeyword("SELECT") {
		p.next()
	}

	if p.tok.Type == lexer.ASTERISK {
		p.next()
	} else if !p.isKeyword("GROUP") && !p.isKeyword("ORDER") && !p.atEnd() {
		items, err := p.parseItems()
		if err != nil {
			return nil, err
		}
		d.Items = items
	}

	if p.isKeyword("GROUP") {
		p.next()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			col, err := p.name()
			if err != nil {
				return nil, err
			}
			d.GroupBy = append(d.GroupBy, col)
			if p.tok.Type != lexer.COMMA {
				break
			}
			p.next()
		}
	}

	if p.isKeyword("ORDER") {
		p.next()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		// ORDER BY may name an aggregate by the column it produces
		item, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		d.OrderBy = item.Name()
	}

	if p.tok.Type == lexer.SEMICOLON {
		p.next()
	}
	if !p.atEnd() {
		return nil, fmt.Errorf("unexpected %q after directive", p.tok.Literal)
	}
	return d, nil
}

func (p *Parser) atEnd() bool {
	return p.tok.Type == lexer.EOF
}

func (p *Parser) parseItems() ([]Item, error) {
	var items []Item
	for {
		item, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.tok.Type != lexer.COMMA {
			return items, nil
		}
		p.next()
	}
}

func (p *Parser) parseItem() (Item, error) {
	if p.tok.Type != lexer.KEYWORD {
		col, err := p.name()
		if err != nil {
			return Item{}, err
		}
		return Item{Column: col}, nil
	}

	fn := p.tok.Literal
	p.next()
	if err := p.expect(lexer.LPAREN); err != nil {
		return Item{}, err
	}

	var item Item
	if fn == "COUNT" {
		if err := p.expect(lexer.ASTERISK); err != nil {
			return Item{}, fmt.Errorf("only COUNT(*) is supported: %w", err)
		}
		item.CountStar = true
	} else {
		agg, err := query.ParseAggregate(fn)
		if err != nil {
			return Item{}, err
		}
		col, err := p.name()
		if err != nil {
			return Item{}, err
		}
		item = Item{Column: col, Aggregate: agg}
	}

	if err := p.expect(lexer.RPAREN); err != nil {
		return Item{}, err
	}
	return item, nil
}

// Parse parses a directive string
func Parse(directive string) (*Directive, error) {
	if strings.TrimSpace(directive) == "" {
		return &Directive{}, nil
	}
	return New(lexer.New(directive)).Parse()
}
