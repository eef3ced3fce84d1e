package social

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error kind. Adapters map codes to user-facing text.
type Code string

const (
	CodeNotAuthorized          Code = "not_authorized"
	CodeInvalidName            Code = "invalid_name"
	CodeDuplicateName          Code = "duplicate_name"
	CodeNameTaken              Code = "name_taken"
	CodeProtected              Code = "protected"
	CodeIsLastRole             Code = "is_last_role"
	CodeRoleInUse              Code = "role_in_use"
	CodeRoleNotFound           Code = "role_not_found"
	CodeUnknownPermission      Code = "unknown_permission"
	CodeNotAMember             Code = "not_a_member"
	CodeReligionNotFound       Code = "religion_not_found"
	CodeAlreadyInReligion      Code = "already_in_religion"
	CodeNotInReligion          Code = "not_in_religion"
	CodeNotInvited             Code = "not_invited"
	CodeAlreadyInvited         Code = "already_invited"
	CodeInviteNotFound         Code = "invite_not_found"
	CodeBanned                 Code = "banned"
	CodeNotBanned              Code = "not_banned"
	CodeIsFounder              Code = "is_founder"
	CodeCannotTargetSelf       Code = "cannot_target_self"
	CodeInvalidInput           Code = "invalid_input"
	CodeNotFounder             Code = "not_founder"
	CodeCivilizationNotFound   Code = "civilization_not_found"
	CodeAlreadyInCivilization  Code = "already_in_civilization"
	CodeNotInCivilization      Code = "not_in_civilization"
	CodeFull                   Code = "full"
	CodeDuplicateDomain        Code = "duplicate_domain"
	CodeExpired                Code = "expired"
	CodeCannotKickSelf         Code = "cannot_kick_self"
	CodeIsFounderReligion      Code = "is_founder_religion"
	CodeSelfTarget             Code = "self_target"
	CodeAlreadyProposed        Code = "already_proposed"
	CodeInsufficientRank       Code = "insufficient_rank"
	CodeAlreadyAtOrAboveStatus Code = "already_at_or_above_status"
	CodeInvalidStatus          Code = "invalid_status"
	CodeProposalNotFound       Code = "proposal_not_found"
	CodeNoTreaty               Code = "no_treaty"
	CodeInvalidAmount          Code = "invalid_amount"
	CodeInsufficientFunds      Code = "insufficient_funds"
	CodeInternalInconsistency  Code = "internal_inconsistency"
)

// Error is a rule violation with a closed code and structured metadata.
type Error struct {
	Code     Code              // Machine-readable error kind
	Message  string            // Internal message (for logs)
	Metadata map[string]string // Fields adapters may template into user text
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a domain error with a formatted message and optional metadata.
// kv is read as alternating key/value pairs.
func Errorf(code Code, kv []string, format string, args ...any) *Error {
	e := &Error{Code: code, Message: fmt.Sprintf(format, args...)}
	if len(kv) > 1 {
		e.Metadata = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			e.Metadata[kv[i]] = kv[i+1]
		}
	}
	return e
}

// CodeOf extracts the code from err, or "" if err is not a domain error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Sentinels for errors.Is checks.
var (
	ErrNotAuthorized          = New(CodeNotAuthorized, "not authorized")
	ErrInvalidName            = New(CodeInvalidName, "invalid name")
	ErrDuplicateName          = New(CodeDuplicateName, "duplicate name")
	ErrNameTaken              = New(CodeNameTaken, "name taken")
	ErrProtected              = New(CodeProtected, "protected role")
	ErrIsLastRole             = New(CodeIsLastRole, "cannot delete the last role")
	ErrRoleInUse              = New(CodeRoleInUse, "role is in use")
	ErrRoleNotFound           = New(CodeRoleNotFound, "role not found")
	ErrUnknownPermission      = New(CodeUnknownPermission, "unknown permission")
	ErrNotAMember             = New(CodeNotAMember, "not a member")
	ErrReligionNotFound       = New(CodeReligionNotFound, "religion not found")
	ErrAlreadyInReligion      = New(CodeAlreadyInReligion, "already in a religion")
	ErrNotInReligion          = New(CodeNotInReligion, "not in a religion")
	ErrNotInvited             = New(CodeNotInvited, "not invited")
	ErrAlreadyInvited         = New(CodeAlreadyInvited, "already invited")
	ErrInviteNotFound         = New(CodeInviteNotFound, "invite not found")
	ErrBanned                 = New(CodeBanned, "banned")
	ErrNotBanned              = New(CodeNotBanned, "not banned")
	ErrIsFounder              = New(CodeIsFounder, "founder cannot do this")
	ErrCannotTargetSelf       = New(CodeCannotTargetSelf, "cannot target self")
	ErrInvalidInput           = New(CodeInvalidInput, "invalid input")
	ErrNotFounder             = New(CodeNotFounder, "not the religion founder")
	ErrCivilizationNotFound   = New(CodeCivilizationNotFound, "civilization not found")
	ErrAlreadyInCivilization  = New(CodeAlreadyInCivilization, "already in a civilization")
	ErrNotInCivilization      = New(CodeNotInCivilization, "not in a civilization")
	ErrFull                   = New(CodeFull, "civilization is full")
	ErrDuplicateDomain        = New(CodeDuplicateDomain, "domain already represented")
	ErrExpired                = New(CodeExpired, "expired")
	ErrCannotKickSelf         = New(CodeCannotKickSelf, "cannot kick own religion")
	ErrIsFounderReligion      = New(CodeIsFounderReligion, "founder religion cannot leave")
	ErrSelfTarget             = New(CodeSelfTarget, "cannot target own civilization")
	ErrAlreadyProposed        = New(CodeAlreadyProposed, "proposal already pending")
	ErrInsufficientRank       = New(CodeInsufficientRank, "insufficient prestige rank")
	ErrAlreadyAtOrAboveStatus = New(CodeAlreadyAtOrAboveStatus, "relation already at or above status")
	ErrInvalidStatus          = New(CodeInvalidStatus, "invalid diplomatic status")
	ErrProposalNotFound       = New(CodeProposalNotFound, "proposal not found")
	ErrNoTreaty               = New(CodeNoTreaty, "no treaty in force")
	ErrInvalidAmount          = New(CodeInvalidAmount, "amount must be positive")
	ErrInsufficientFunds      = New(CodeInsufficientFunds, "insufficient balance")
	ErrInternalInconsistency  = New(CodeInternalInconsistency, "internal inconsistency")
)
