package social

// NoticeKind tells the notification adapter what happened.
type NoticeKind string

const (
	NoticeReligionInvite        NoticeKind = "religion_invite"
	NoticeMemberJoined          NoticeKind = "member_joined"
	NoticeMemberLeft            NoticeKind = "member_left"
	NoticeKicked                NoticeKind = "kicked"
	NoticeBanned                NoticeKind = "banned"
	NoticeUnbanned              NoticeKind = "unbanned"
	NoticeReligionDisbanded     NoticeKind = "religion_disbanded"
	NoticeRoleAssigned          NoticeKind = "role_assigned"
	NoticeRoleDeleted           NoticeKind = "role_deleted"
	NoticeFounderTransferred    NoticeKind = "founder_transferred"
	NoticeCivilizationInvite    NoticeKind = "civilization_invite"
	NoticeCivilizationJoined    NoticeKind = "civilization_joined"
	NoticeCivilizationLeft      NoticeKind = "civilization_left"
	NoticeCivilizationKicked    NoticeKind = "civilization_kicked"
	NoticeCivilizationDisbanded NoticeKind = "civilization_disbanded"
	NoticeProposalReceived      NoticeKind = "proposal_received"
	NoticeProposalAccepted      NoticeKind = "proposal_accepted"
	NoticeProposalDeclined      NoticeKind = "proposal_declined"
	NoticeWarDeclared           NoticeKind = "war_declared"
	NoticeBreakScheduled        NoticeKind = "break_scheduled"
	NoticeBreakCanceled         NoticeKind = "break_canceled"
	NoticeTreatyEnded           NoticeKind = "treaty_ended"
	NoticeTreatyViolation       NoticeKind = "treaty_violation"
)

// Notice is a side effect the caller must deliver to one player.
type Notice struct {
	Player  PlayerID          `json:"player"`
	Kind    NoticeKind        `json:"kind"`
	Payload map[string]string `json:"payload,omitempty"`
}

// NewNotice builds a notice; kv is read as alternating key/value pairs.
func NewNotice(player PlayerID, kind NoticeKind, kv ...string) Notice {
	n := Notice{Player: player, Kind: kind}
	if len(kv) > 1 {
		n.Payload = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			n.Payload[kv[i]] = kv[i+1]
		}
	}
	return n
}

// Broadcast builds one notice per player, skipping except (usually the actor).
func Broadcast(players []PlayerID, except PlayerID, kind NoticeKind, kv ...string) []Notice {
	var out []Notice
	for _, p := range players {
		if p == except {
			continue
		}
		out = append(out, NewNotice(p, kind, kv...))
	}
	return out
}
