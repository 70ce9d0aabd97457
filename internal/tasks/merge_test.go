package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/radiotx/internal/models"
)

func TestNewTracks(t *testing.T) {
	t.Run("Preserves Source Order", func(t *testing.T) {
		got := NewTracks(tracks("c", "a", "b", "d"), tracks("b", "x"))

		var ids []string
		for _, tr := range got {
			ids = append(ids, tr.ID)
		}
		if fmt.Sprint(ids) != "[c a d]" {
			t.Errorf("expected [c a d], got %v", ids)
		}
	})

	t.Run("Empty Target Keeps Everything", func(t *testing.T) {
		if got := NewTracks(tracks("a", "b"), nil); len(got) != 2 {
			t.Errorf("expected 2 tracks, got %d", len(got))
		}
	})

	t.Run("All Present", func(t *testing.T) {
		if got := NewTracks(tracks("a"), tracks("a", "b")); len(got) != 0 {
			t.Errorf("expected nothing new, got %v", got)
		}
	})
}

func TestMergeEngine(t *testing.T) {
	ctx := context.Background()

	t.Run("Merges And Deletes Source", func(t *testing.T) {
		registry, history := recordingRegistry()
		client := &mockClient{tracks: map[string][]models.Track{
			"src": tracks("1", "2", "3"),
			"dst": tracks("2"),
		}}
		engine := NewMergeEngine(registry, factoryFor(client), nil)

		result, err := engine.Run(ctx, "t1", "src", "dst", Credentials{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Added != 2 || !result.SourceDeleted {
			t.Errorf("unexpected result %+v", result)
		}
		if len(client.batches) != 1 || fmt.Sprint(client.batches[0]) != "[spotify:track:1 spotify:track:3]" {
			t.Errorf("unexpected batches %v", client.batches)
		}
		if len(client.unfollows) != 1 || client.unfollows[0] != "src" {
			t.Errorf("expected source unfollowed, got %v", client.unfollows)
		}

		rec, _ := registry.Get("t1")
		if rec.Status != models.TaskCompleted || rec.Progress != 100 ||
			rec.Message != "Successfully merged 2 tracks and deleted source playlist" {
			t.Errorf("unexpected final record %+v", rec)
		}

		steps := history("t1")
		assertMonotonic(t, steps)

		progress := []int{}
		for _, s := range steps {
			progress = append(progress, s.Progress)
		}
		if fmt.Sprint(progress) != "[0 10 30 40 50 60 60 85 90 100]" {
			t.Errorf("unexpected progress sequence %v", progress)
		}
		if steps[0].Message != "Starting playlist merge..." {
			t.Errorf("unexpected first message %q", steps[0].Message)
		}
	})

	t.Run("Delete Failure Is A Warning", func(t *testing.T) {
		registry := NewRegistry(nil)
		client := &mockClient{
			tracks:    map[string][]models.Track{"src": tracks("1"), "dst": nil},
			deleteErr: errors.New("forbidden"),
		}
		engine := NewMergeEngine(registry, factoryFor(client), nil)

		result, err := engine.Run(ctx, "t1", "src", "dst", Credentials{})
		if err != nil {
			t.Fatalf("delete failure must not fail the run: %v", err)
		}
		if result.SourceDeleted || result.DeleteError == nil {
			t.Errorf("unexpected result %+v", result)
		}

		rec, _ := registry.Get("t1")
		want := "Successfully merged 1 tracks, but failed to delete source playlist: forbidden"
		if rec.Status != models.TaskCompletedWithWarning || rec.Progress != 100 || rec.Message != want {
			t.Errorf("unexpected final record %+v", rec)
		}
	})

	t.Run("Nothing New Still Deletes Source", func(t *testing.T) {
		registry, history := recordingRegistry()
		client := &mockClient{tracks: map[string][]models.Track{
			"src": tracks("1", "2"),
			"dst": tracks("2", "1"),
		}}
		engine := NewMergeEngine(registry, factoryFor(client), nil)

		if _, err := engine.Run(ctx, "t1", "src", "dst", Credentials{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(client.batches) != 0 {
			t.Errorf("expected no tracks added, got %v", client.batches)
		}
		if len(client.unfollows) != 1 {
			t.Errorf("expected source to be deleted, got %v", client.unfollows)
		}

		var sawNothingNew bool
		for _, s := range history("t1") {
			if s.Message == "No new tracks to add (all tracks already exist in target playlist)" {
				sawNothingNew = s.Status == models.TaskCompleted && s.Progress == 90
			}
		}
		if !sawNothingNew {
			t.Error("expected completed update at 90 when nothing is new")
		}

		rec, _ := registry.Get("t1")
		if rec.Message != "Successfully merged 0 tracks and deleted source playlist" {
			t.Errorf("unexpected final message %q", rec.Message)
		}
	})

	t.Run("Source Failures", func(t *testing.T) {
		tests := []struct {
			name   string
			client *mockClient
		}{
			{"empty source", &mockClient{tracks: map[string][]models.Track{"dst": tracks("1")}}},
			{"source error", &mockClient{listErr: map[string]error{"src": errors.New("404")}}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				registry := NewRegistry(nil)
				engine := NewMergeEngine(registry, factoryFor(tt.client), nil)

				if _, err := engine.Run(ctx, "t1", "src", "dst", Credentials{}); err == nil {
					t.Fatal("expected error")
				}
				rec, _ := registry.Get("t1")
				if rec.Status != models.TaskError || rec.Message != "Failed to get tracks from source playlist" {
					t.Errorf("unexpected record %+v", rec)
				}
				if len(tt.client.unfollows) != 0 {
					t.Error("source must not be deleted when the merge fails")
				}
			})
		}
	})

	t.Run("Target Failure", func(t *testing.T) {
		registry := NewRegistry(nil)
		client := &mockClient{
			tracks:  map[string][]models.Track{"src": tracks("1")},
			listErr: map[string]error{"dst": errors.New("500")},
		}
		engine := NewMergeEngine(registry, factoryFor(client), nil)

		if _, err := engine.Run(ctx, "t1", "src", "dst", Credentials{}); err == nil {
			t.Fatal("expected error")
		}
		rec, _ := registry.Get("t1")
		if rec.Status != models.TaskError || rec.Message != "Failed to get tracks from target playlist" {
			t.Errorf("unexpected record %+v", rec)
		}
	})

	t.Run("Add Failure", func(t *testing.T) {
		registry := NewRegistry(nil)
		client := &mockClient{
			tracks: map[string][]models.Track{"src": tracks("1"), "dst": nil},
			addErr: errors.New("rate limited"),
		}
		engine := NewMergeEngine(registry, factoryFor(client), nil)

		if _, err := engine.Run(ctx, "t1", "src", "dst", Credentials{}); err == nil {
			t.Fatal("expected error")
		}
		rec, _ := registry.Get("t1")
		if rec.Status != models.TaskError || rec.Message != "Error merging playlists: failed to add tracks: rate limited" {
			t.Errorf("unexpected record %+v", rec)
		}
		if len(client.unfollows) != 0 {
			t.Error("source must not be deleted when adding fails")
		}
	})

	t.Run("Client Factory Failure", func(t *testing.T) {
		registry := NewRegistry(nil)
		engine := NewMergeEngine(registry, failingFactory(), nil)

		if _, err := engine.Run(ctx, "t1", "src", "dst", Credentials{}); err == nil {
			t.Fatal("expected error")
		}
		rec, _ := registry.Get("t1")
		if rec.Status != models.TaskError || rec.Message != "Failed to create Spotify client" {
			t.Errorf("unexpected record %+v", rec)
		}
	})
}
