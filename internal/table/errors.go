package table

import "github.com/Silozo17/homeholdem-sub001/internal/protocol"

var (
	ErrNotAuthorized       = protocol.NewError(protocol.CodeNotAuthorized, "table: not authorized")
	ErrHandInProgress      = protocol.NewError(protocol.CodeHandInProgress, "table: hand in progress")
	ErrInsufficientPlayers = protocol.NewError(protocol.CodeInsufficientPlayers, "table: not enough players with chips")
	ErrStaleHand           = protocol.NewError(protocol.CodeStaleHand, "table: hand is not current")
	ErrNotYourTurn         = protocol.NewError(protocol.CodeNotYourTurn, "table: not your turn")
	ErrIllegalAction       = protocol.NewError(protocol.CodeIllegalAction, "table: illegal action")
	ErrClosed              = protocol.NewError(protocol.CodeTableClosed, "table: closed")
	ErrNotFound            = protocol.NewError(protocol.CodeNotFound, "table: not found")
	ErrNotSeated           = protocol.NewError(protocol.CodeNotFound, "table: player is not seated")
	ErrSeatTaken           = protocol.NewError(protocol.CodeConflict, "table: seat is taken")
	ErrAlreadySeated       = protocol.NewError(protocol.CodeConflict, "table: player is already seated")
	ErrTableFull           = protocol.NewError(protocol.CodeConflict, "table: no empty seats")
	ErrBadRequest          = protocol.NewError(protocol.CodeBadRequest, "table: bad request")
)
