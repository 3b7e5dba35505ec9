package riot

import (
	log "github.com/sirupsen/logrus"
)

// Event type tags seen in match timelines
const (
	EventItemPurchased        = "ITEM_PURCHASED"
	EventItemDestroyed        = "ITEM_DESTROYED"
	EventItemUndo             = "ITEM_UNDO"
	EventItemSold             = "ITEM_SOLD"
	EventSkillLevelUp         = "SKILL_LEVEL_UP"
	EventLevelUp              = "LEVEL_UP"
	EventChampionTransform    = "CHAMPION_TRANSFORM"
	EventChampionKill         = "CHAMPION_KILL"
	EventChampionSpecialKill  = "CHAMPION_SPECIAL_KILL"
	EventWardKill             = "WARD_KILL"
	EventWardPlaced           = "WARD_PLACED"
	EventEliteMonsterKill     = "ELITE_MONSTER_KILL"
	EventBuildingKill         = "BUILDING_KILL"
	EventTurretPlateDestroyed = "TURRET_PLATE_DESTROYED"
	EventPauseEnd             = "PAUSE_END"
	EventGameEnd              = "GAME_END"
)

// Event fields that carry participant ids
const (
	FieldParticipantID = "participantId"
	FieldKillerID      = "killerId"
	FieldVictimID      = "victimId"
	FieldCreatorID     = "creatorId"
)

// actorFields maps an event type to the field naming the acting participant.
// An empty value means the type is known but has no single actor.
var actorFields = map[string]string{
	EventItemPurchased:        FieldParticipantID,
	EventItemDestroyed:        FieldParticipantID,
	EventItemUndo:             FieldParticipantID,
	EventItemSold:             FieldParticipantID,
	EventSkillLevelUp:         FieldParticipantID,
	EventLevelUp:              FieldParticipantID,
	EventChampionTransform:    FieldParticipantID,
	EventChampionKill:         FieldKillerID,
	EventChampionSpecialKill:  FieldKillerID,
	EventWardKill:             FieldKillerID,
	EventEliteMonsterKill:     FieldKillerID,
	EventBuildingKill:         FieldKillerID,
	EventTurretPlateDestroyed: FieldKillerID,
	EventWardPlaced:           FieldCreatorID,
	EventPauseEnd:             "",
	EventGameEnd:              "",
}

// opponentFields maps an event type to the field naming the opposing participant.
var opponentFields = map[string]string{
	EventChampionKill:         FieldVictimID,
	EventWardPlaced:           "",
	EventBuildingKill:         "",
	EventChampionSpecialKill:  "",
	EventChampionTransform:    "",
	EventTurretPlateDestroyed: "",
	EventEliteMonsterKill:     "",
	EventWardKill:             "",
	EventItemDestroyed:        "",
	EventItemUndo:             "",
	EventItemPurchased:        "",
	EventItemSold:             "",
	EventGameEnd:              "",
	EventPauseEnd:             "",
	EventSkillLevelUp:         "",
	EventLevelUp:              "",
}

// ActorField returns the field holding the acting participant id for an event type.
// ok is false when the type has no actor; unknown types also log a diagnostic.
func ActorField(eventType string) (field string, ok bool) {
	field, known := actorFields[eventType]
	if !known {
		log.WithField("eventType", eventType).Warn("[EventKeys] no actor key for event type")
		return "", false
	}
	return field, field != ""
}

// OpponentField returns the field holding the opposing participant id for an event type.
func OpponentField(eventType string) (field string, ok bool) {
	field, known := opponentFields[eventType]
	if !known {
		log.WithField("eventType", eventType).Warn("[EventKeys] no opponent key for event type")
		return "", false
	}
	return field, field != ""
}

// AppliesToAll reports whether an event concerns every player at once
// (pause end and game end markers).
func AppliesToAll(eventType string) bool {
	return eventType == EventPauseEnd || eventType == EventGameEnd
}

// IsKnownEventType reports whether the type is in the classification tables
func IsKnownEventType(eventType string) bool {
	_, ok := actorFields[eventType]
	return ok
}
