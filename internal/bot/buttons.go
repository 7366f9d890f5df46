package bot

import "strings"

const (
	buttonPrefix = "party"

	actionCreate  = "create"
	actionJoin    = "join"
	actionLeave   = "leave"
	actionDisband = "disband"
	actionDecide  = "decide"

	decisionAccept = "accept"
	decisionReject = "reject"

	// pendingPartyID stands in for the id while the announcement that defines
	// it is being posted.
	pendingPartyID = "pending"
)

const createButtonID = buttonPrefix + ":" + actionCreate

func partyButtonID(action, partyID string) string {
	if partyID == "" {
		partyID = pendingPartyID
	}
	return buttonPrefix + ":" + action + ":" + partyID
}

func joinButtonID(partyID string) string    { return partyButtonID(actionJoin, partyID) }
func leaveButtonID(partyID string) string   { return partyButtonID(actionLeave, partyID) }
func disbandButtonID(partyID string) string { return partyButtonID(actionDisband, partyID) }

func decideButtonID(accept bool, decisionID string) string {
	verdict := decisionReject
	if accept {
		verdict = decisionAccept
	}
	return buttonPrefix + ":" + actionDecide + ":" + verdict + ":" + decisionID
}

type buttonAction struct {
	action     string
	partyID    string
	decisionID string
	accept     bool
}

func parseButtonID(customID string) (buttonAction, bool) {
	parts := strings.Split(customID, ":")
	if len(parts) < 2 || parts[0] != buttonPrefix {
		return buttonAction{}, false
	}
	switch parts[1] {
	case actionCreate:
		if len(parts) != 2 {
			return buttonAction{}, false
		}
		return buttonAction{action: actionCreate}, true
	case actionJoin, actionLeave, actionDisband:
		if len(parts) != 3 || parts[2] == "" {
			return buttonAction{}, false
		}
		return buttonAction{action: parts[1], partyID: parts[2]}, true
	case actionDecide:
		if len(parts) != 4 || parts[3] == "" {
			return buttonAction{}, false
		}
		switch parts[2] {
		case decisionAccept:
			return buttonAction{action: actionDecide, decisionID: parts[3], accept: true}, true
		case decisionReject:
			return buttonAction{action: actionDecide, decisionID: parts[3]}, true
		}
	}
	return buttonAction{}, false
}
