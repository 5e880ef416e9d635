package spacetime

import (
	"fmt"
	"strings"
)

// SubscriptionSet names the tables and owning-claim filter currently
// requested from the server. Changing either field requires a resubscribe
// and a full processor reseed.
type SubscriptionSet struct {
	PlayerID uint64
	ClaimID  uint64
}

// Queries renders the subscription query strings for this set. The order is
// stable so re-subscribes after a reconnect send an identical request.
func (s SubscriptionSet) Queries() []string {
	player := s.PlayerID
	claim := s.ClaimID
	return []string{
		"SELECT * FROM traveler_task_loop_timer;",
		fmt.Sprintf("SELECT * FROM traveler_task_state WHERE player_entity_id = '%d';", player),
		fmt.Sprintf("SELECT * FROM building_state WHERE claim_entity_id = '%d';", claim),
		fmt.Sprintf("SELECT * FROM building_nickname_state WHERE entity_id IN (SELECT entity_id FROM building_state WHERE claim_entity_id = '%d');", claim),
		fmt.Sprintf("SELECT * FROM claim_member_state WHERE claim_entity_id = '%d';", claim),
		fmt.Sprintf("SELECT * FROM claim_state WHERE entity_id = '%d';", claim),
		fmt.Sprintf("SELECT * FROM claim_local_state WHERE entity_id = '%d';", claim),
		fmt.Sprintf("SELECT inventory_state.* FROM inventory_state JOIN building_state ON inventory_state.owner_entity_id = building_state.entity_id WHERE building_state.claim_entity_id = '%d';", claim),
		fmt.Sprintf("SELECT progressive_action_state.* FROM progressive_action_state JOIN building_state ON progressive_action_state.building_entity_id = building_state.entity_id WHERE building_state.claim_entity_id = '%d';", claim),
		fmt.Sprintf("SELECT public_progressive_action_state.* FROM public_progressive_action_state JOIN building_state ON public_progressive_action_state.building_entity_id = building_state.entity_id WHERE building_state.claim_entity_id = '%d';", claim),
		fmt.Sprintf("SELECT passive_craft_state.* FROM passive_craft_state JOIN building_state ON passive_craft_state.building_entity_id = building_state.entity_id WHERE building_state.claim_entity_id = '%d';", claim),
	}
}

// PlayerIDQuery resolves a username to its player entity id.
func PlayerIDQuery(username string) string {
	return fmt.Sprintf(
		"SELECT * FROM player_lowercase_username_state WHERE username_lowercase = '%s';",
		sanitize(strings.ToLower(username)),
	)
}

// PlayerClaimsQuery lists the claim memberships of a player.
func PlayerClaimsQuery(playerID uint64) string {
	return fmt.Sprintf("SELECT * FROM claim_member_state WHERE player_entity_id = '%d';", playerID)
}

// ClaimQuery fetches the claim_state row for one claim.
func ClaimQuery(claimID uint64) string {
	return fmt.Sprintf("SELECT * FROM claim_state WHERE entity_id = '%d';", claimID)
}

// sanitize escapes single quotes in string literals embedded in query text.
func sanitize(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
