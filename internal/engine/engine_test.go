package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestOptionsConfigString(t *testing.T) {
	cases := []struct {
		name string
		opts Options
		want string
	}{
		{
			name: "defaults",
			opts: DefaultOptions(),
			want: "--oem 1 --psm 6 -c preserve_interword_spaces=1 -l eng",
		},
		{
			name: "no preserve, multiple languages",
			opts: Options{Languages: []string{"eng", "hin"}, EngineMode: 1, PageSegMode: 3},
			want: "--oem 1 --psm 3 -l eng+hin",
		},
		{
			name: "no languages",
			opts: Options{EngineMode: 3, PageSegMode: 11, PreserveInterwordSpaces: true},
			want: "--oem 3 --psm 11 -c preserve_interword_spaces=1",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.opts.ConfigString(); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFilterLanguages(t *testing.T) {
	installed := []string{"eng", "deu", "osd"}

	t.Run("keeps installed", func(t *testing.T) {
		got := filterLanguages([]string{"eng", "deu"}, installed)
		if !reflect.DeepEqual(got, []string{"eng", "deu"}) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("drops missing", func(t *testing.T) {
		got := filterLanguages([]string{"eng", "hin"}, installed)
		if !reflect.DeepEqual(got, []string{"eng"}) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("falls back to eng", func(t *testing.T) {
		got := filterLanguages([]string{"jpn"}, installed)
		if !reflect.DeepEqual(got, []string{"eng"}) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("empty request falls back", func(t *testing.T) {
		got := filterLanguages(nil, installed)
		if !reflect.DeepEqual(got, []string{"eng"}) {
			t.Errorf("got %v", got)
		}
	})
}

func TestRecognitionError(t *testing.T) {
	inner := errors.New("engine exploded")
	err := error(&RecognitionError{Engine: "tesseract", Err: inner})

	var recErr *RecognitionError
	if !errors.As(err, &recErr) {
		t.Fatal("errors.As failed")
	}
	if !errors.Is(err, inner) {
		t.Error("expected unwrap to inner error")
	}
}

func TestMockEngine(t *testing.T) {
	t.Run("returns configured text", func(t *testing.T) {
		m := NewMock()
		m.ResponseText = "hello"
		got, err := m.Recognize(context.Background(), nil, DefaultOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "hello" {
			t.Errorf("got %q", got)
		}
		if m.Requests() != 1 {
			t.Errorf("expected 1 request, got %d", m.Requests())
		}
	})

	t.Run("fails when configured", func(t *testing.T) {
		m := NewMock()
		m.ShouldFail = true
		_, err := m.Recognize(context.Background(), nil, DefaultOptions())
		var recErr *RecognitionError
		if !errors.As(err, &recErr) {
			t.Errorf("expected RecognitionError, got %v", err)
		}
	})

	t.Run("fails after N requests", func(t *testing.T) {
		m := NewMock()
		m.FailAfter = 2
		for i := 0; i < 2; i++ {
			if _, err := m.Recognize(context.Background(), nil, DefaultOptions()); err != nil {
				t.Fatalf("request %d: unexpected error %v", i+1, err)
			}
		}
		if _, err := m.Recognize(context.Background(), nil, DefaultOptions()); err == nil {
			t.Error("expected failure after limit")
		}
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		m := NewMock()
		m.Latency = time.Second
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := m.Recognize(ctx, nil, DefaultOptions())
		var recErr *RecognitionError
		if !errors.As(err, &recErr) {
			t.Errorf("expected RecognitionError on timeout, got %v", err)
		}
	})
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Default(); err == nil {
		t.Error("expected error with no engines")
	}

	m := NewMock()
	r.Register(m)

	got, err := r.Get(MockName)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != Engine(m) {
		t.Error("Get returned wrong engine")
	}

	def, err := r.Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}
	if def.Name() != MockName {
		t.Errorf("expected default %s, got %s", MockName, def.Name())
	}

	if _, err := r.Get("nope"); err == nil {
		t.Error("expected error for unknown engine")
	}

	names := r.Names()
	if len(names) != 1 || names[0] != MockName {
		t.Errorf("unexpected names: %v", names)
	}
}
