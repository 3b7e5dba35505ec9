package riot

import (
	"strconv"

	log "github.com/sirupsen/logrus"
)

const (
	// EnvironmentID is the synthetic participant used for minion/turret/monster actors
	EnvironmentID   = "0"
	EnvironmentName = "Minions/Environment"

	// PlayerSlots is the number of human participants in a match
	PlayerSlots = 10
)

// Participant is a resolved numeric participant slot
type Participant struct {
	PUUID string `json:"puuid"`
	Name  string `json:"name"`
}

// ParticipantMap maps a timeline's numeric participant id (as a string, "0".."10")
// to the player behind it.
type ParticipantMap map[string]Participant

// BuildParticipantMap binds every timeline participant to its summoner name by PUUID.
// Participants whose PUUID is missing from the summaries are left out; looking
// them up later yields no name rather than an error.
func BuildParticipantMap(info *TimelineInfo, summaries []MatchSummary) ParticipantMap {
	pm := ParticipantMap{
		EnvironmentID: {PUUID: "-", Name: EnvironmentName},
	}
	if info == nil {
		return pm
	}

	byPUUID := make(map[string]string, len(summaries))
	for _, s := range summaries {
		if _, seen := byPUUID[s.PUUID]; !seen {
			byPUUID[s.PUUID] = s.SummonerName
		}
	}

	for _, p := range info.Participants {
		name, ok := byPUUID[p.PUUID]
		if !ok {
			log.WithFields(log.Fields{
				"participantId": p.ParticipantID,
				"puuid":         p.PUUID,
			}).Debug("[Participants] puuid not found in match summary")
			continue
		}
		pm[strconv.Itoa(p.ParticipantID)] = Participant{PUUID: p.PUUID, Name: name}
	}

	return pm
}

// Name resolves a numeric participant id to a summoner name
func (pm ParticipantMap) Name(id int) (string, bool) {
	p, ok := pm[strconv.Itoa(id)]
	if !ok {
		return "", false
	}
	return p.Name, true
}
