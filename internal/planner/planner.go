package planner

import (
	"errors"
	"fmt"

	"github.com/zakazai/hwdb-rtab/internal/parser"
	"github.com/zakazai/hwdb-rtab/internal/query"
	"github.com/zakazai/hwdb-rtab/internal/rtab"
)

// ErrInvalidPlan is returned when a directive does not fit the table schema
var ErrInvalidPlan = errors.New("planner: directive does not match table")

// Plan is a post-processing plan resolved against one table schema
type Plan struct {
	Type          string
	GroupBy       []string
	CountStar     bool
	HasAggregates bool
	Attrs         []query.Aggregate
	Columns       []string
	OrderBy       string
}

// Plan types
const (
	PlanSelect = "SELECT"
	PlanGroup  = "GROUP"
)

// CreatePlan checks a directive against the schema of t and converts it into
// a Plan. Every name is validated here, so the post-processor can treat
// unknown names as no-ops.
func CreatePlan(d *parser.Directive, t *rtab.Table) (*Plan, error) {
	if !t.IsSuccess() {
		return nil, fmt.Errorf("%w: table carries status %s", ErrInvalidPlan, t.Status)
	}

	plan := &Plan{
		Type:          PlanSelect,
		CountStar:     d.CountStar(),
		HasAggregates: d.HasAggregates(),
		OrderBy:       d.OrderBy,
	}
	if plan.CountStar || plan.HasAggregates || len(d.GroupBy) > 0 {
		plan.Type = PlanGroup
	}

	has := func(name string) bool { return t.ColumnIndex(name) >= 0 }

	for _, col := range d.GroupBy {
		if !has(col) {
			return nil, fmt.Errorf("%w: unknown GROUP BY column %q", ErrInvalidPlan, col)
		}
		plan.GroupBy = append(plan.GroupBy, col)
	}

	if plan.HasAggregates {
		plan.Attrs = make([]query.Aggregate, t.NumColumns())
	}
	output := make(map[string]bool)
	for _, col := range t.Columns {
		output[col] = true
	}
	for _, item := range d.Items {
		switch {
		case item.CountStar:
		case item.Aggregate != query.AggNone:
			idx := t.ColumnIndex(item.Column)
			if idx < 0 {
				return nil, fmt.Errorf("%w: unknown column %q in %s", ErrInvalidPlan, item.Column, item.Name())
			}
			if prev := plan.Attrs[idx]; prev != query.AggNone && prev != item.Aggregate {
				return nil, fmt.Errorf("%w: column %q aggregated by both %s and %s",
					ErrInvalidPlan, item.Column, prev, item.Aggregate)
			}
			plan.Attrs[idx] = item.Aggregate
			delete(output, item.Column)
		default:
			if !has(item.Column) {
				return nil, fmt.Errorf("%w: unknown column %q", ErrInvalidPlan, item.Column)
			}
		}
	}
	// aggregated columns are renamed; the new names must stay unique
	final := make(map[string]bool, t.NumColumns())
	for i, col := range t.Columns {
		name := col
		if plan.HasAggregates && plan.Attrs[i] != query.AggNone {
			name = plan.Attrs[i].Prefix() + "(" + col + ")"
		}
		if final[name] {
			return nil, fmt.Errorf("%w: result column %q would appear twice", ErrInvalidPlan, name)
		}
		final[name] = true
	}

	for _, item := range d.Items {
		if item.CountStar || item.Aggregate != query.AggNone {
			output[item.Name()] = true
		}
	}

	for _, item := range d.Items {
		if !item.CountStar && item.Aggregate == query.AggNone && !output[item.Column] {
			return nil, fmt.Errorf("%w: column %q is aggregated and cannot also be selected", ErrInvalidPlan, item.Column)
		}
		plan.Columns = append(plan.Columns, item.Name())
	}

	if plan.OrderBy != "" {
		visible := output
		if len(plan.Columns) > 0 {
			visible = make(map[string]bool, len(plan.Columns))
			for _, col := range plan.Columns {
				visible[col] = true
			}
		}
		if !visible[plan.OrderBy] {
			return nil, fmt.Errorf("%w: unknown ORDER BY column %q", ErrInvalidPlan, plan.OrderBy)
		}
	}

	return plan, nil
}

// Execute applies the plan to t in place: group-by and aggregates first,
// then projection, then ordering
func (p *Plan) Execute(t *rtab.Table) error {
	if !t.IsSuccess() {
		return t.Err()
	}
	if p.Type == PlanGroup {
		query.GroupBy(t, p.GroupBy, p.CountStar, p.HasAggregates, p.Attrs)
	}
	if len(p.Columns) > 0 {
		if err := query.Project(t, p.Columns); err != nil {
			return err
		}
	}
	if p.OrderBy != "" {
		query.OrderBy(t, p.OrderBy)
	}
	return nil
}

// Apply parses a directive, plans it against t and executes it
func Apply(directive string, t *rtab.Table) error {
	d, err := parser.Parse(directive)
	if err != nil {
		return err
	}
	plan, err := CreatePlan(d, t)
	if err != nil {
		return err
	}
	return plan.Execute(t)
}
