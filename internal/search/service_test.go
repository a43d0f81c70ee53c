package search

import (
	"errors"
	"testing"
)

type fakeSearcher struct {
	searchFn func(Query) ([]Result, int, error)
}

func (f *fakeSearcher) Search(q Query) ([]Result, int, error) {
	if f.searchFn != nil {
		return f.searchFn(q)
	}
	return nil, 0, nil
}

func (f *fakeSearcher) Healthy() bool { return true }

func TestSearchUsesFallbackWithoutMeili(t *testing.T) {
	var got Query
	fallback := &fakeSearcher{
		searchFn: func(q Query) ([]Result, int, error) {
			got = q
			return []Result{{ID: "asg_1", UserName: "小明", ItemName: "卡式爐"}}, 1, nil
		},
	}
	service := NewService(nil, fallback)

	response := service.Search(Query{Text: "卡式爐", Limit: 10})
	if got.Text != "卡式爐" {
		t.Fatalf("fallback received query %q", got.Text)
	}
	if response.Total != 1 || len(response.Results) != 1 {
		t.Fatalf("response = %+v", response)
	}
	if response.Query != "卡式爐" {
		t.Fatalf("response echoes query, got %q", response.Query)
	}
}

func TestSearchFallbackErrorYieldsEmptyResponse(t *testing.T) {
	fallback := &fakeSearcher{
		searchFn: func(Query) ([]Result, int, error) {
			return nil, 0, errors.New("db down")
		},
	}
	service := NewService(nil, fallback)

	response := service.Search(Query{Text: "x"})
	if response.Results == nil {
		t.Fatalf("results must be an empty slice, never nil")
	}
	if len(response.Results) != 0 || response.Total != 0 {
		t.Fatalf("response = %+v, want empty", response)
	}
}

func TestSearchNeverReturnsNilResults(t *testing.T) {
	fallback := &fakeSearcher{
		searchFn: func(Query) ([]Result, int, error) {
			return nil, 0, nil
		},
	}
	service := NewService(nil, fallback)

	response := service.Search(Query{Text: "nothing"})
	if response.Results == nil {
		t.Fatalf("results must be an empty slice, never nil")
	}
}

func TestIndexingWithoutMeiliIsNoOp(t *testing.T) {
	service := NewService(nil, &fakeSearcher{})
	// Must not panic or spawn anything.
	service.IndexAssignments([]AssignmentRecord{{ID: "asg_1"}})
	service.DeleteAssignment("asg_1")
}
