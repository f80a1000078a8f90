package orchestrator

import (
	"errors"
	"testing"
)

func TestInMemoryRepository_CreateRun(t *testing.T) {
	repo := NewInMemoryRepository()
	run := Run{ID: "r1", Request: GenerationRequest{Duration: 16}}

	t.Run("success_starts_pending", func(t *testing.T) {
		if err := repo.CreateRun(run); err != nil {
			t.Fatalf("CreateRun: %v", err)
		}
		got, ok := repo.GetRun("r1")
		if !ok {
			t.Fatal("GetRun: ok false")
		}
		if got.Status != StatusPending {
			t.Errorf("status = %s, want %s", got.Status, StatusPending)
		}
		if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
			t.Error("timestamps not set")
		}
	})

	t.Run("duplicate_id_rejected", func(t *testing.T) {
		err := repo.CreateRun(run)
		if !errors.Is(err, ErrRunExists) {
			t.Errorf("duplicate CreateRun: err = %v, want ErrRunExists", err)
		}
	})
}

func TestInMemoryRepository_SetResult(t *testing.T) {
	repo := NewInMemoryRepository()
	_ = repo.CreateRun(Run{ID: "r1"})

	if err := repo.SetResult("r1", 3, 18, "/out/r1/final.gif"); err != nil {
		t.Fatalf("SetResult: %v", err)
	}
	got, _ := repo.GetRun("r1")
	if got.Status != StatusDone {
		t.Errorf("status = %s, want %s", got.Status, StatusDone)
	}
	if got.Windows != 3 || got.Frames != 18 {
		t.Errorf("windows/frames = %d/%d, want 3/18", got.Windows, got.Frames)
	}
	if got.OutputPath != "/out/r1/final.gif" {
		t.Errorf("output path = %q", got.OutputPath)
	}
}

func TestInMemoryRepository_SetFailed(t *testing.T) {
	repo := NewInMemoryRepository()
	_ = repo.CreateRun(Run{ID: "r1"})

	if err := repo.SetFailed("r1", 2, "window 2: engine exploded"); err != nil {
		t.Fatalf("SetFailed: %v", err)
	}
	got, _ := repo.GetRun("r1")
	if got.Status != StatusFailed {
		t.Errorf("status = %s, want %s", got.Status, StatusFailed)
	}
	if got.Windows != 2 || got.Error == "" {
		t.Errorf("windows = %d, error = %q", got.Windows, got.Error)
	}
}

func TestInMemoryRepository_missing_run(t *testing.T) {
	repo := NewInMemoryRepository()

	if err := repo.SetStatus("nope", StatusRunning); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("SetStatus: err = %v, want ErrRunNotFound", err)
	}
	if err := repo.SetResult("nope", 1, 16, "x"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("SetResult: err = %v, want ErrRunNotFound", err)
	}
	if err := repo.SetFailed("nope", 0, "x"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("SetFailed: err = %v, want ErrRunNotFound", err)
	}
}

func TestInMemoryRepository_ActiveRunCount(t *testing.T) {
	repo := NewInMemoryRepository()
	_ = repo.CreateRun(Run{ID: "a"})
	_ = repo.CreateRun(Run{ID: "b"})
	_ = repo.CreateRun(Run{ID: "c"})

	if n := repo.ActiveRunCount(); n != 3 {
		t.Fatalf("active = %d, want 3", n)
	}

	_ = repo.SetStatus("a", StatusRunning)
	if n := repo.ActiveRunCount(); n != 3 {
		t.Errorf("active after running = %d, want 3", n)
	}

	_ = repo.SetResult("b", 1, 16, "x")
	_ = repo.SetFailed("c", 0, "boom")
	if n := repo.ActiveRunCount(); n != 1 {
		t.Errorf("active after done/failed = %d, want 1", n)
	}
}
