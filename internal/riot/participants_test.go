package riot

import "testing"

func TestBuildParticipantMap(t *testing.T) {
	info := &TimelineInfo{Participants: []TimelineParticipant{
		{ParticipantID: 1, PUUID: "aaa"},
		{ParticipantID: 2, PUUID: "bbb"},
		{ParticipantID: 3, PUUID: "missing"},
	}}
	summaries := []MatchSummary{
		{SummonerName: "Alpha", PUUID: "aaa"},
		{SummonerName: "Bravo", PUUID: "bbb"},
	}

	pm := BuildParticipantMap(info, summaries)

	if env, ok := pm[EnvironmentID]; !ok || env.Name != EnvironmentName || env.PUUID != "-" {
		t.Errorf("Expected environment seed, got %+v", env)
	}
	if name, ok := pm.Name(1); !ok || name != "Alpha" {
		t.Errorf("Expected Alpha for id 1, got %q, %v", name, ok)
	}
	if name, ok := pm.Name(0); !ok || name != EnvironmentName {
		t.Errorf("Expected environment for id 0, got %q, %v", name, ok)
	}
	if _, ok := pm.Name(3); ok {
		t.Error("Expected id 3 to be unresolved")
	}
	if _, ok := pm.Name(11); ok {
		t.Error("Expected id 11 to be unresolved")
	}
	if len(pm) != 3 {
		t.Errorf("Expected 3 entries, got %d", len(pm))
	}
}

func TestBuildParticipantMap_NilInfo(t *testing.T) {
	pm := BuildParticipantMap(nil, nil)
	if len(pm) != 1 {
		t.Errorf("Expected only the environment entry, got %d", len(pm))
	}
}

func TestFindSummary(t *testing.T) {
	summaries := []MatchSummary{{SummonerName: "Alpha", Kills: 4}, {SummonerName: "Bravo"}}
	if s := FindSummary(summaries, "Alpha"); s == nil || s.Kills != 4 {
		t.Errorf("Expected Alpha summary, got %+v", s)
	}
	if s := FindSummary(summaries, "Nobody"); s != nil {
		t.Errorf("Expected nil, got %+v", s)
	}
}
