package layout_test

import (
	"errors"
	"sync"
	"testing"

	"accentabx/internal/layout"
)

func TestResolveAmerican(t *testing.T) {
	l := layout.New("/data", "/data/features", "/data/times")
	got := l.Resolve("American")

	want := layout.Paths{
		Category: "American",
		Input:    "/data/results/dev/American/abx/h5_file.h5f",
		Features: "/data/features/American",
		Times:    "/data/times/American",
		ItemFile: "/data/American/abx/american_item.item",
	}
	if got != want {
		t.Fatalf("unexpected paths:\n got %+v\nwant %+v", got, want)
	}
}

func TestResolveIsDeterministicAndDistinct(t *testing.T) {
	l := layout.New("/base", "/out/features", "/out/times")
	categories := []string{"American", "British", "Indian", "Chinese", "Japanese", "Korean", "Russian", "Spanish", "Portuguese"}

	seen := make(map[string]string)
	for _, category := range categories {
		first := l.Resolve(category)
		if second := l.Resolve(category); first != second {
			t.Fatalf("resolve not deterministic for %s", category)
		}
		for _, dir := range []string{first.Features, first.Times} {
			if owner, ok := seen[dir]; ok {
				t.Fatalf("%s shares output %q with %s", category, dir, owner)
			}
			seen[dir] = category
		}
	}
}

func TestValidateCategory(t *testing.T) {
	valid := []string{"American", "Spanish", "New-Zealand"}
	for _, name := range valid {
		if err := layout.ValidateCategory(name); err != nil {
			t.Fatalf("ValidateCategory(%q) returned %v", name, err)
		}
	}

	invalid := []string{"", " British", "a/b", `a\b`, "..", "x..y", "."}
	for _, name := range invalid {
		err := layout.ValidateCategory(name)
		if err == nil {
			t.Fatalf("ValidateCategory(%q) expected error", name)
		}
		if !errors.Is(err, layout.ErrInvalidCategory) {
			t.Fatalf("ValidateCategory(%q) error %v does not wrap ErrInvalidCategory", name, err)
		}
	}
}

func TestItemFileName(t *testing.T) {
	cases := map[string]string{
		"American":   "american_item.item",
		"Portuguese": "portuguese_item.item",
		"UK":         "uk_item.item",
	}
	for in, want := range cases {
		if got := layout.ItemFileName(in); got != want {
			t.Fatalf("ItemFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveConcurrentCallsAgree(t *testing.T) {
	l := layout.New("/data", "/data/features", "/data/times")
	categories := []string{"American", "British", "Indian", "Chinese", "Japanese", "Korean"}

	var wg sync.WaitGroup
	errs := make(chan string, len(categories)*20)
	for i := 0; i < 20; i++ {
		for _, category := range categories {
			wg.Add(1)
			go func(category string) {
				defer wg.Done()
				want := "/data/" + category + "/abx/" + layout.ItemFileName(category)
				if got := l.Resolve(category).ItemFile; got != want {
					errs <- got
				}
			}(category)
		}
	}
	wg.Wait()
	close(errs)
	for got := range errs {
		t.Errorf("unexpected item file %q", got)
	}
	if got := layout.ItemFileName("Korean"); got != "korean_item.item" {
		t.Fatalf("ItemFileName(Korean) = %q", got)
	}
}
