package model

import (
	"encoding/json"
	"fmt"
)

// Requirement is a typed equip/use requirement. The catalog stores
// requirements as a JSON array of tagged objects; each known shape gets
// its own variant so unknown tags fail loudly at decode time instead of
// silently passing validation.
type Requirement interface {
	requirementTag() string
}

// LevelRequirement demands a minimum level in one skill.
type LevelRequirement struct {
	Skill string `json:"skill"`
	Level int    `json:"level"`
}

func (LevelRequirement) requirementTag() string { return "level" }

// QuestRequirement demands a completed quest.
type QuestRequirement struct {
	QuestID int64 `json:"quest_id"`
}

func (QuestRequirement) requirementTag() string { return "quest" }

// ItemRequirement demands possession of another item.
type ItemRequirement struct {
	ItemID   int64 `json:"item_id"`
	Quantity int64 `json:"quantity"`
}

func (ItemRequirement) requirementTag() string { return "item" }

type taggedRequirement struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"body"`
}

// EncodeRequirements serializes requirements for catalog storage.
func EncodeRequirements(reqs []Requirement) ([]byte, error) {
	if len(reqs) == 0 {
		return []byte("[]"), nil
	}
	tagged := make([]taggedRequirement, 0, len(reqs))
	for _, r := range reqs {
		body, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("failed to encode requirement: %w", err)
		}
		tagged = append(tagged, taggedRequirement{Type: r.requirementTag(), Body: body})
	}
	return json.Marshal(tagged)
}

// DecodeRequirements parses a stored requirement array. An unknown tag
// is an error, not an ignored entry.
func DecodeRequirements(data []byte) ([]Requirement, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var tagged []taggedRequirement
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, fmt.Errorf("failed to decode requirements: %w", err)
	}
	reqs := make([]Requirement, 0, len(tagged))
	for _, t := range tagged {
		var r Requirement
		switch t.Type {
		case "level":
			var v LevelRequirement
			if err := json.Unmarshal(t.Body, &v); err != nil {
				return nil, fmt.Errorf("failed to decode level requirement: %w", err)
			}
			r = v
		case "quest":
			var v QuestRequirement
			if err := json.Unmarshal(t.Body, &v); err != nil {
				return nil, fmt.Errorf("failed to decode quest requirement: %w", err)
			}
			r = v
		case "item":
			var v ItemRequirement
			if err := json.Unmarshal(t.Body, &v); err != nil {
				return nil, fmt.Errorf("failed to decode item requirement: %w", err)
			}
			r = v
		default:
			return nil, fmt.Errorf("unknown requirement type %q", t.Type)
		}
		reqs = append(reqs, r)
	}
	return reqs, nil
}
