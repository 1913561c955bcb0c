package query_test

import (
	"strings"
	"testing"

	"github.com/edgevault/edgevault/pkg/query"
)

func testProjection() *query.ProjectionMap {
	return query.
		NewProjectionMap("public", "documents", "d").
		Project("id", "ID").
		Project("title", "Title").
		Project("status", "Status").
		Project("created_at", "CreatedAt")
}

func TestBuildNoConditions(t *testing.T) {
	sql, args := query.NewBuilder(testProjection()).Build()

	if !strings.HasPrefix(sql, "SELECT d.id, d.title, d.status, d.created_at FROM public.documents d") {
		t.Errorf("unexpected sql: %s", sql)
	}
	if strings.Contains(sql, "WHERE") {
		t.Errorf("expected no WHERE clause: %s", sql)
	}
	if len(args) != 0 {
		t.Errorf("expected no args, got %v", args)
	}
}

func TestBuildParameterNumbering(t *testing.T) {
	status := "active"
	title := "report"

	sql, args := query.
		NewBuilder(testProjection()).
		WhereEquals("Status", &status).
		WhereContains("Title", &title).
		Build()

	if !strings.Contains(sql, "d.status = $1") {
		t.Errorf("expected first placeholder: %s", sql)
	}
	if !strings.Contains(sql, "d.title ILIKE $2") {
		t.Errorf("expected second placeholder: %s", sql)
	}
	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(args))
	}
	if args[1] != "%report%" {
		t.Errorf("expected wrapped pattern, got %v", args[1])
	}
}

func TestBuildNilConditionsSkipped(t *testing.T) {
	sql, args := query.
		NewBuilder(testProjection()).
		WhereEquals("Status", (*string)(nil)).
		WhereContains("Title", nil).
		Build()

	if strings.Contains(sql, "WHERE") {
		t.Errorf("nil conditions should be skipped: %s", sql)
	}
	if len(args) != 0 {
		t.Errorf("expected no args, got %v", args)
	}
}

func TestBuildCount(t *testing.T) {
	status := "active"
	sql, args := query.
		NewBuilder(testProjection()).
		WhereEquals("Status", &status).
		BuildCount()

	if !strings.HasPrefix(sql, "SELECT COUNT(*) FROM public.documents d") {
		t.Errorf("unexpected sql: %s", sql)
	}
	if !strings.Contains(sql, "WHERE d.status = $1") {
		t.Errorf("expected condition: %s", sql)
	}
	if len(args) != 1 {
		t.Errorf("expected 1 arg, got %d", len(args))
	}
}

func TestBuildPage(t *testing.T) {
	sql, _ := query.
		NewBuilder(testProjection(), query.SortField{Field: "CreatedAt", Descending: true}).
		BuildPage(3, 25)

	if !strings.Contains(sql, "ORDER BY d.created_at DESC") {
		t.Errorf("expected default sort: %s", sql)
	}
	if !strings.Contains(sql, "LIMIT 25 OFFSET 50") {
		t.Errorf("expected limit/offset: %s", sql)
	}
}

func TestOrderByOverridesDefault(t *testing.T) {
	sql, _ := query.
		NewBuilder(testProjection(), query.SortField{Field: "CreatedAt", Descending: true}).
		OrderByFields([]query.SortField{{Field: "Title"}}).
		Build()

	if !strings.Contains(sql, "ORDER BY d.title ASC") {
		t.Errorf("expected override sort: %s", sql)
	}
	if strings.Contains(sql, "created_at DESC") {
		t.Errorf("default sort should be replaced: %s", sql)
	}
}

func TestJoinedProjection(t *testing.T) {
	p := query.
		NewProjectionMap("public", "deletion_requests", "r").
		Project("id", "ID").
		Join("public", "documents", "d", "JOIN", "r.document_id = d.id").
		Project("title", "DocumentTitle")

	from := p.From()
	if !strings.Contains(from, "public.deletion_requests r JOIN public.documents d ON r.document_id = d.id") {
		t.Errorf("unexpected from clause: %s", from)
	}
	if p.Column("DocumentTitle") != "d.title" {
		t.Errorf("joined column should use join alias, got %s", p.Column("DocumentTitle"))
	}
	if p.Column("ID") != "r.id" {
		t.Errorf("base column should use base alias, got %s", p.Column("ID"))
	}
}

func TestWhereSearch(t *testing.T) {
	search := "budget"
	sql, args := query.
		NewBuilder(testProjection()).
		WhereSearch(&search, "Title", "Status").
		Build()

	if !strings.Contains(sql, "(d.title ILIKE $1 OR d.status ILIKE $2)") {
		t.Errorf("expected OR search clause: %s", sql)
	}
	if len(args) != 2 || args[0] != "%budget%" {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestParseSortFields(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []query.SortField
	}{
		{"empty", "", nil},
		{"single ascending", "Title", []query.SortField{{Field: "Title"}}},
		{"single descending", "-CreatedAt", []query.SortField{{Field: "CreatedAt", Descending: true}}},
		{
			"mixed",
			"Title,-CreatedAt",
			[]query.SortField{{Field: "Title"}, {Field: "CreatedAt", Descending: true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := query.ParseSortFields(tt.input)
			if len(got) != len(tt.expected) {
				t.Fatalf("got %d fields, want %d", len(got), len(tt.expected))
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("field %d: got %+v, want %+v", i, got[i], tt.expected[i])
				}
			}
		})
	}
}
