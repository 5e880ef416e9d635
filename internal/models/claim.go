package models

import (
	"encoding/json"
	"fmt"
)

// Member is one row of claim_member_state.
type Member struct {
	EntityID            uint64 `json:"entity_id"`
	ClaimID             uint64 `json:"claim_entity_id"`
	PlayerID            uint64 `json:"player_entity_id"`
	UserName            string `json:"user_name"`
	InventoryPermission bool   `json:"inventory_permission"`
	BuildPermission     bool   `json:"build_permission"`
	OfficerPermission   bool   `json:"officer_permission"`
	CoOwnerPermission   bool   `json:"co_owner_permission"`
}

func (m Member) Key() uint64 { return m.EntityID }

// ParseMember decodes one claim_member_state row.
func ParseMember(data []byte) (Member, error) {
	var row Member
	if err := json.Unmarshal(data, &row); err != nil {
		return Member{}, fmt.Errorf("parse claim_member_state: %w", err)
	}
	if row.EntityID == 0 {
		return Member{}, fmt.Errorf("parse claim_member_state: missing entity_id")
	}
	return row, nil
}

// Claim is one row of claim_state.
type Claim struct {
	EntityID      uint64 `json:"entity_id"`
	OwnerPlayerID uint64 `json:"owner_player_entity_id"`
	OwnerBuilding uint64 `json:"owner_building_entity_id"`
	Name          string `json:"name"`
	Neutral       bool   `json:"neutral"`
}

func (c Claim) Key() uint64 { return c.EntityID }

// ParseClaim decodes one claim_state row.
func ParseClaim(data []byte) (Claim, error) {
	var row Claim
	if err := json.Unmarshal(data, &row); err != nil {
		return Claim{}, fmt.Errorf("parse claim_state: %w", err)
	}
	if row.EntityID == 0 {
		return Claim{}, fmt.Errorf("parse claim_state: missing entity_id")
	}
	return row, nil
}

// ClaimLocal is one row of claim_local_state: the mutable economy counters of
// a claim.
type ClaimLocal struct {
	EntityID uint64  `json:"entity_id"`
	Supplies int64   `json:"supplies"`
	Treasury int64   `json:"treasury"`
	NumTiles int     `json:"num_tiles"`
	Upkeep   float64 `json:"building_maintenance"`
}

func (c ClaimLocal) Key() uint64 { return c.EntityID }

// ParseClaimLocal decodes one claim_local_state row.
func ParseClaimLocal(data []byte) (ClaimLocal, error) {
	var row ClaimLocal
	if err := json.Unmarshal(data, &row); err != nil {
		return ClaimLocal{}, fmt.Errorf("parse claim_local_state: %w", err)
	}
	if row.EntityID == 0 {
		return ClaimLocal{}, fmt.Errorf("parse claim_local_state: missing entity_id")
	}
	return row, nil
}

// Building is one row of building_state.
type Building struct {
	EntityID      uint64 `json:"entity_id"`
	ClaimID       uint64 `json:"claim_entity_id"`
	DescriptionID int64  `json:"building_description_id"`
	ConstructedBy uint64 `json:"constructed_by_player_entity_id"`
}

func (b Building) Key() uint64 { return b.EntityID }

// ParseBuilding decodes one building_state row.
func ParseBuilding(data []byte) (Building, error) {
	var row Building
	if err := json.Unmarshal(data, &row); err != nil {
		return Building{}, fmt.Errorf("parse building_state: %w", err)
	}
	if row.EntityID == 0 {
		return Building{}, fmt.Errorf("parse building_state: missing entity_id")
	}
	return row, nil
}

// BuildingNickname is one row of building_nickname_state.
type BuildingNickname struct {
	EntityID uint64 `json:"entity_id"`
	Nickname string `json:"nickname"`
}

func (b BuildingNickname) Key() uint64 { return b.EntityID }

// ParseBuildingNickname decodes one building_nickname_state row.
func ParseBuildingNickname(data []byte) (BuildingNickname, error) {
	var row BuildingNickname
	if err := json.Unmarshal(data, &row); err != nil {
		return BuildingNickname{}, fmt.Errorf("parse building_nickname_state: %w", err)
	}
	if row.EntityID == 0 {
		return BuildingNickname{}, fmt.Errorf("parse building_nickname_state: missing entity_id")
	}
	return row, nil
}
