package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"epicdash/internal/data"
	"epicdash/internal/riot"
	"epicdash/internal/storage"
	"epicdash/internal/timeline"

	"github.com/goccy/go-json"
)

const (
	testPassword = "pw"
	player       = "streamer"
	matchID      = "EUW1_100"
	anchorMillis = int64(1642276800000) // 2022-01-15 20:00:00 UTC
)

var matchStart = time.UnixMilli(anchorMillis).UTC()

func i64(v int64) *int64 { return &v }
func ip(v int) *int      { return &v }

func seal(t *testing.T, root, name string, plain []byte) {
	t.Helper()
	dir := filepath.Join(root, player)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	var buf bytes.Buffer
	if err := storage.Encrypt(bytes.NewReader(plain), &buf, testPassword); err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func sealJSON(t *testing.T, root, name string, v interface{}) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	seal(t, root, name, b)
}

// setup writes one match: P1 (the streamer, winning) kills P6 twice
func setup(t *testing.T, chatRows string) *Dashboard {
	t.Helper()
	root := t.TempDir()

	var summaries []riot.MatchSummary
	var participants []riot.TimelineParticipant
	for id := 1; id <= 10; id++ {
		puuid := fmt.Sprintf("puuid-%d", id)
		summaries = append(summaries, riot.MatchSummary{
			SummonerName:        fmt.Sprintf("P%d", id),
			PUUID:               puuid,
			Win:                 id <= 5,
			PhysicalDamageDealt: 100,
			MagicDamageDealt:    id * 10,
		})
		participants = append(participants, riot.TimelineParticipant{ParticipantID: id, PUUID: puuid})
	}
	raw := riot.TimelineResponse{Info: &riot.TimelineInfo{
		Participants: participants,
		Frames: []riot.TimelineFrame{
			{Events: []riot.TimelineEvent{{Type: riot.EventPauseEnd, Timestamp: i64(0), RealTimestamp: i64(anchorMillis)}}},
			{Events: []riot.TimelineEvent{
				{Type: riot.EventChampionKill, Timestamp: i64(2500), KillerID: ip(1), VictimID: ip(6)},
				{Type: riot.EventWardPlaced, Timestamp: i64(3000), CreatorID: ip(1)},
				{Type: riot.EventChampionKill, Timestamp: i64(5000), KillerID: ip(1), VictimID: ip(6)},
				{Type: riot.EventChampionKill, Timestamp: i64(6000), KillerID: ip(6), VictimID: ip(1)},
			}},
		},
	}}
	history := []riot.MatchHistoryEntry{{MatchID: matchID, GameStartTimestamp: anchorMillis, GameDuration: 1800}}

	sealJSON(t, root, "match_summaries.json.aes", history)
	sealJSON(t, root, "match_participant_summaries_"+matchID+".json.aes", summaries)
	sealJSON(t, root, "match_timeline_"+matchID+".json.aes", raw)
	seal(t, root, "summoner_mapping.csv.aes", []byte("summoner_name\nP1\n"))
	seal(t, root, "chat_df.csv.aes", []byte("datetime,author_name,text,chatbot,personal_msg,command,timecategory,matchId\n"+chatRows))

	vault, err := storage.NewVault(storage.NewLocalSource(root), testPassword, t.TempDir())
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	return New(data.NewService(vault))
}

const chatRows = "" +
	"2022-01-15 19:59:59+00:00,a,hello,False,False,False,BEFORE_MATCH," + matchID + "\n" +
	"2022-01-15 20:00:02+00:00,b,nice,False,False,False,DURING_MATCH," + matchID + "\n" +
	"2022-01-15 20:00:03+00:00,bot,!rank,True,False,True,DURING_MATCH," + matchID + "\n" +
	"2022-01-15 20:00:05+00:00,c,gg,False,False,False,DURING_MATCH," + matchID + "\n" +
	"2022-01-15 20:00:09+00:00,d,later,False,False,False,DURING_MATCH," + matchID + "\n" +
	"2022-01-15 20:00:04+00:00,e,other match,False,False,False,DURING_MATCH,EUW1_999\n"

func TestMatchView(t *testing.T) {
	d := setup(t, chatRows)

	view, err := d.MatchView(context.Background(), player, matchID, riot.EventChampionKill)
	if err != nil {
		t.Fatalf("MatchView: %v", err)
	}
	if len(view.ByParticipant) != 2 {
		t.Fatalf("Expected 2 killers, got %+v", view.ByParticipant)
	}
	if view.ByParticipant[0].Participant != "P6" || view.ByParticipant[1].Count != 2 {
		t.Errorf("Expected loser P6 first, winner P1 with 2 kills, got %+v", view.ByParticipant)
	}
	if view.Outcome.Won != 2 || view.Outcome.Lost != 1 {
		t.Errorf("Unexpected outcome totals %+v", view.Outcome)
	}
	if view.EventTypes[0] != timeline.AllEventTypes {
		t.Errorf("Expected ALL first, got %v", view.EventTypes)
	}
	if view.DefaultSummoner != "P1" || !view.Summoners[0].Streamer || view.Summoners[0].Label != "P1 (streamer)" {
		t.Errorf("Expected streamer's summoner marked as default, got %q %+v", view.DefaultSummoner, view.Summoners[0])
	}

	all, err := d.MatchView(context.Background(), player, matchID, "")
	if err != nil {
		t.Fatalf("MatchView(all): %v", err)
	}
	if all.EventType != timeline.AllEventTypes {
		t.Errorf("Expected empty selection to mean ALL, got %q", all.EventType)
	}
}

func TestSummonerView(t *testing.T) {
	d := setup(t, chatRows)

	view, err := d.SummonerView(context.Background(), player, matchID, "P1", nil)
	if err != nil {
		t.Fatalf("SummonerView: %v", err)
	}
	if len(view.DefaultTypes) != 1 || view.DefaultTypes[0] != riot.EventChampionKill {
		t.Errorf("Expected kills preselected, got %v", view.DefaultTypes)
	}

	shares := map[string]int{}
	for _, s := range view.Detail.Shares {
		shares[s.Metric] = s.Percent
	}
	if shares["physicalDamageDealt"] != 10 {
		t.Errorf("Expected 10%% physical share, got %d", shares["physicalDamageDealt"])
	}
	// 10 of 550
	if shares["magicDamageDealt"] != 2 {
		t.Errorf("Expected 2%% magic share, got %d", shares["magicDamageDealt"])
	}
	if shares["physicalDamageTaken"] != 0 {
		t.Errorf("Expected 0%% share when the match total is zero, got %d", shares["physicalDamageTaken"])
	}

	_, err = d.SummonerView(context.Background(), player, matchID, "Ghost", nil)
	if !errors.Is(err, ErrUnknownSummoner) {
		t.Errorf("Expected ErrUnknownSummoner, got %v", err)
	}
}

func TestChatView(t *testing.T) {
	d := setup(t, chatRows)

	view, err := d.ChatView(context.Background(), player, matchID, "P1", []string{riot.EventChampionKill})
	if err != nil {
		t.Fatalf("ChatView: %v", err)
	}
	if !view.HasChat || view.MessageCount != 5 {
		t.Fatalf("Expected 5 chat messages, got %+v", view)
	}
	// 19:59:59 .. 20:00:09 inclusive
	if len(view.Buckets) != 11 {
		t.Errorf("Expected 11 buckets, got %d", len(view.Buckets))
	}
	if view.MessagePhases.Before != 1 || view.MessagePhases.During != 4 {
		t.Errorf("Unexpected message phases %+v", view.MessagePhases)
	}

	// P1 events: pause at :00, kills rounded to :03 and :05, ward :03, death :06
	if len(view.Aligned) != 7 {
		t.Fatalf("Expected aligned span :00..:06, got %d", len(view.Aligned))
	}
	if !view.Aligned[0].Second.Equal(matchStart) {
		t.Errorf("Expected aligned series to start at match start, got %v", view.Aligned[0].Second)
	}
	if view.Aligned[2].Count != 1 {
		t.Errorf("Expected one message at :02, got %d", view.Aligned[2].Count)
	}

	if len(view.Markers) != 2 {
		t.Fatalf("Expected 2 kill markers, got %+v", view.Markers)
	}
	if view.Markers[0].Position != 3 || view.Markers[1].Position != 5 {
		t.Errorf("Expected markers at positions 3 and 5, got %d and %d", view.Markers[0].Position, view.Markers[1].Position)
	}
	if view.Markers[1].Label != "2 | CHAMPION_KILL" {
		t.Errorf("Unexpected marker label %q", view.Markers[1].Label)
	}
	if len(view.Lanes) != 1 || view.Lanes[0] != riot.EventChampionKill {
		t.Errorf("Unexpected lanes %v", view.Lanes)
	}
}

func TestChatView_NoChat(t *testing.T) {
	d := setup(t, "2022-01-15 20:00:04+00:00,e,elsewhere,False,False,False,DURING_MATCH,EUW1_999\n")

	view, err := d.ChatView(context.Background(), player, matchID, "P1", nil)
	if err != nil {
		t.Fatalf("Expected no error without chat, got %v", err)
	}
	if view.HasChat {
		t.Error("Expected HasChat to be false")
	}
}

func TestChatWindow(t *testing.T) {
	d := setup(t, chatRows)

	msgs, err := d.ChatWindow(context.Background(), player, matchID, matchStart, time.Time{})
	if err != nil {
		t.Fatalf("ChatWindow: %v", err)
	}
	// nearest to :00 is :59 (pos 0), nearest to :15 is :09 (pos 4); end exclusive, bot dropped
	if len(msgs) != 3 {
		t.Fatalf("Expected 3 messages, got %d: %+v", len(msgs), msgs)
	}
	if msgs[0].Text != "hello" || msgs[2].Text != "gg" {
		t.Errorf("Unexpected window %q .. %q", msgs[0].Text, msgs[2].Text)
	}
}

func TestStreamerView(t *testing.T) {
	d := setup(t, chatRows)

	view, err := d.StreamerView(context.Background(), player)
	if err != nil {
		t.Fatalf("StreamerView: %v", err)
	}
	if len(view.Matches) != 1 || len(view.PerDay) != 1 || view.PerDay[0].Count != 1 {
		t.Errorf("Unexpected streamer view %+v", view)
	}
	if view.Weekdays.Overall != 1 {
		t.Errorf("Expected overall mean 1, got %v", view.Weekdays.Overall)
	}
}

func TestMatchView_Errors(t *testing.T) {
	d := setup(t, chatRows)

	_, err := d.MatchView(context.Background(), player, "EUW1_404", "")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
