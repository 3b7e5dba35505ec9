package data

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"epicdash/internal/storage"
)

const testPassword = "test-pw"

func seal(t *testing.T, root, player, name, plain string) {
	t.Helper()
	dir := filepath.Join(root, player)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	var buf bytes.Buffer
	if err := storage.Encrypt(bytes.NewReader([]byte(plain)), &buf, testPassword); err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func newTestService(t *testing.T, root string) *Service {
	t.Helper()
	vault, err := storage.NewVault(storage.NewLocalSource(root), testPassword, t.TempDir())
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	return NewService(vault)
}

func TestMatchHistory_LabelsAndDurations(t *testing.T) {
	root := t.TempDir()
	// 2022-01-15 20:00:00 UTC
	start := time.Date(2022, 1, 15, 20, 0, 0, 0, time.UTC).UnixMilli()
	seal(t, root, "streamer", "match_summaries.json.aes", `[
		{"matchId":"EUW1_1","gameStartTimestamp":`+strconv.FormatInt(start, 10)+`,"gameDuration_ms":1800},
		{"matchId":"EUW1_2","gameStartTimestamp":`+strconv.FormatInt(start, 10)+`,"gameDuration_ms":1800000}
	]`)

	matches, err := newTestService(t, root).MatchHistory(context.Background(), "streamer")
	if err != nil {
		t.Fatalf("MatchHistory: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(matches))
	}

	for _, m := range matches {
		if got := m.End.Sub(m.Start); got != 30*time.Minute {
			t.Errorf("%s: expected 30m duration, got %v", m.MatchID, got)
		}
	}
	want := "1 | EUW1_1 (2022-01-15 20:00:00 to 20:30:00)"
	if matches[0].Label != want {
		t.Errorf("Expected label %q, got %q", want, matches[0].Label)
	}
	if matches[1].Label[:4] != "2 | " {
		t.Errorf("Expected second label to be numbered 2, got %q", matches[1].Label)
	}
}

func TestGameDuration(t *testing.T) {
	tests := []struct {
		in   int64
		want time.Duration
	}{
		{0, 0},
		{9999, 9999 * time.Second},
		{10000, 10 * time.Second},
		{1500000, 25 * time.Minute},
	}
	for _, tt := range tests {
		if got := GameDuration(tt.in); got != tt.want {
			t.Errorf("GameDuration(%d) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSummonerMapping(t *testing.T) {
	root := t.TempDir()
	seal(t, root, "streamer", "summoner_mapping.csv.aes", ",summoner_name\n0,Alpha\n1,Beta\n")

	names, err := newTestService(t, root).SummonerMapping(context.Background(), "streamer")
	if err != nil {
		t.Fatalf("SummonerMapping: %v", err)
	}
	if len(names) != 2 || names[0] != "Alpha" || names[1] != "Beta" {
		t.Errorf("Expected [Alpha Beta], got %v", names)
	}
}

func TestChatOfMatch_FiltersAndSorts(t *testing.T) {
	root := t.TempDir()
	seal(t, root, "streamer", "chat_df.csv.aes",
		"datetime,author_name,text,chatbot,personal_msg,command,timecategory,matchId\n"+
			"2022-01-15 20:00:05+00:00,b,second,False,False,False,DURING_MATCH,M1\n"+
			"2022-01-15 20:00:01+00:00,a,first,False,False,False,DURING_MATCH,M1\n"+
			"2022-01-15 20:00:02+00:00,c,other,False,False,False,DURING_MATCH,M2\n")

	msgs, err := newTestService(t, root).ChatOfMatch(context.Background(), "streamer", "M1")
	if err != nil {
		t.Fatalf("ChatOfMatch: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Text != "first" || msgs[1].Text != "second" {
		t.Errorf("Expected chronological order, got %q then %q", msgs[0].Text, msgs[1].Text)
	}
}

func TestTimeline_NotFound(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, "streamer"), 0755)

	_, err := newTestService(t, root).Timeline(context.Background(), "streamer", "EUW1_404")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStreamers(t *testing.T) {
	root := t.TempDir()
	seal(t, root, "b_streamer", "chat_df.csv.aes", "x")
	seal(t, root, "a_streamer", "chat_df.csv.aes", "x")

	got, err := newTestService(t, root).Streamers(context.Background())
	if err != nil {
		t.Fatalf("Streamers: %v", err)
	}
	if len(got) != 2 || got[0] != "a_streamer" {
		t.Errorf("Expected sorted streamers, got %v", got)
	}
}
