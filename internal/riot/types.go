package riot

// MatchSummary is one participant's end-of-match record.
// A match summary artifact holds ten of these, one per player slot.
type MatchSummary struct {
	SummonerName string `json:"summonerName"`
	PUUID        string `json:"puuid"`
	ChampionName string `json:"championName"`
	TeamPosition string `json:"teamPosition"` // TOP, JUNGLE, MIDDLE, BOTTOM, UTILITY
	Win          bool   `json:"win"`

	Kills              int `json:"kills"`
	Deaths             int `json:"deaths"`
	Assists            int `json:"assists"`
	ChampLevel         int `json:"champLevel"`
	TotalMinionsKilled int `json:"totalMinionsKilled"`

	PhysicalDamageDealt            int `json:"physicalDamageDealt"`
	MagicDamageDealt               int `json:"magicDamageDealt"`
	PhysicalDamageDealtToChampions int `json:"physicalDamageDealtToChampions"`
	MagicDamageDealtToChampions    int `json:"magicDamageDealtToChampions"`
	PhysicalDamageTaken            int `json:"physicalDamageTaken"`
	MagicDamageTaken               int `json:"magicDamageTaken"`
}

// FindSummary returns the summary whose summoner name matches, or nil.
func FindSummary(summaries []MatchSummary, name string) *MatchSummary {
	for i := range summaries {
		if summaries[i].SummonerName == name {
			return &summaries[i]
		}
	}
	return nil
}

// MatchHistoryEntry is one row of a streamer's match_summaries artifact
type MatchHistoryEntry struct {
	MatchID            string `json:"matchId"`
	GameStartTimestamp int64  `json:"gameStartTimestamp"` // epoch millis
	GameDuration       int64  `json:"gameDuration_ms"`
}

// TimelineResponse mirrors the /lol/match/v5/matches/{matchId}/timeline payload.
// Pointers distinguish an absent block from an empty one so that a malformed
// log can be rejected instead of silently producing an empty timeline.
type TimelineResponse struct {
	Metadata TimelineMetadata `json:"metadata"`
	Info     *TimelineInfo    `json:"info"`
}

type TimelineMetadata struct {
	MatchID      string   `json:"matchId"`
	Participants []string `json:"participants"` // PUUIDs
}

type TimelineInfo struct {
	FrameInterval int                   `json:"frameInterval"`
	Participants  []TimelineParticipant `json:"participants"`
	Frames        []TimelineFrame       `json:"frames"`
}

type TimelineParticipant struct {
	ParticipantID int    `json:"participantId"`
	PUUID         string `json:"puuid"`
}

type TimelineFrame struct {
	Timestamp int64           `json:"timestamp"`
	Events    []TimelineEvent `json:"events"`
}

// TimelineEvent is a single raw event. Only the fields the reconstruction
// reads are decoded; the actor/opponent ids are optional per event type.
type TimelineEvent struct {
	Type          string `json:"type"`
	Timestamp     *int64 `json:"timestamp"`
	RealTimestamp *int64 `json:"realTimestamp,omitempty"`

	ParticipantID *int `json:"participantId,omitempty"`
	KillerID      *int `json:"killerId,omitempty"`
	VictimID      *int `json:"victimId,omitempty"`
	CreatorID     *int `json:"creatorId,omitempty"`

	AssistingParticipantIDs []int `json:"assistingParticipantIds,omitempty"`
}

// Field returns the participant id stored under the given JSON field name.
func (e *TimelineEvent) Field(name string) (int, bool) {
	var v *int
	switch name {
	case FieldParticipantID:
		v = e.ParticipantID
	case FieldKillerID:
		v = e.KillerID
	case FieldVictimID:
		v = e.VictimID
	case FieldCreatorID:
		v = e.CreatorID
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}
