package game

import (
	"encoding/json"
	"errors"

	"avalon-be/internal/avalon"

	"go.uber.org/zap"
)

// Request types
const (
	REQ_JOIN_GAME      = "JoinGame"
	REQ_EXIT_GAME      = "ExitGame"
	REQ_CONFIGURE_GAME = "ConfigureGame"
	REQ_START_GAME     = "StartGame"
	REQ_PROPOSE_TEAM   = "ProposeTeam"
	REQ_CAST_VOTE      = "CastVote"
	REQ_SUBMIT_MISSION = "SubmitMission"
	REQ_ASSASSIN_GUESS = "AssassinGuess"
	REQ_TIMEOUT        = "Timeout"
	REQ_VIEW           = "View"
)

// IsClientRequest reports whether a socket may send reqType after joining.
// Joins, exits, timeouts and views only originate inside the server.
func IsClientRequest(reqType string) bool {
	switch reqType {
	case REQ_CONFIGURE_GAME, REQ_START_GAME, REQ_PROPOSE_TEAM,
		REQ_CAST_VOTE, REQ_SUBMIT_MISSION, REQ_ASSASSIN_GUESS:
		return true
	default:
		return false
	}
}

type RequestWrapper struct {
	ReqType string          `json:"request_type"`
	Data    json.RawMessage `json:"data"`

	// PlayerID is stamped by the transport after the join handshake; clients
	// cannot act on behalf of anyone else.
	PlayerID string `json:"-"`
	// NativeData carries in-process requests that hold channels.
	NativeData any `json:"-"`
}

func tryUnwrap[T any](wrapper RequestWrapper, reqType string) *T {
	if wrapper.ReqType != reqType {
		return nil
	}

	if native, ok := wrapper.NativeData.(*T); ok {
		return native
	}

	var req T

	if len(wrapper.Data) == 0 {
		return &req
	}

	if err := json.Unmarshal(wrapper.Data, &req); err != nil {
		zap.L().Error(
			"Failed to unwrap request",
			zap.String("request_type", reqType),
			zap.Error(err),
		)
		return nil
	}

	return &req
}

func TryUnwrapJoinGameRequest(wrapper RequestWrapper) *JoinGameRequest {
	return tryUnwrap[JoinGameRequest](wrapper, REQ_JOIN_GAME)
}

func TryUnwrapExitGameRequest(wrapper RequestWrapper) *ExitGameRequest {
	return tryUnwrap[ExitGameRequest](wrapper, REQ_EXIT_GAME)
}

func TryUnwrapConfigureGameRequest(wrapper RequestWrapper) *ConfigureGameRequest {
	return tryUnwrap[ConfigureGameRequest](wrapper, REQ_CONFIGURE_GAME)
}

func TryUnwrapStartGameRequest(wrapper RequestWrapper) *StartGameRequest {
	return tryUnwrap[StartGameRequest](wrapper, REQ_START_GAME)
}

func TryUnwrapProposeTeamRequest(wrapper RequestWrapper) *ProposeTeamRequest {
	return tryUnwrap[ProposeTeamRequest](wrapper, REQ_PROPOSE_TEAM)
}

func TryUnwrapCastVoteRequest(wrapper RequestWrapper) *CastVoteRequest {
	return tryUnwrap[CastVoteRequest](wrapper, REQ_CAST_VOTE)
}

func TryUnwrapSubmitMissionRequest(wrapper RequestWrapper) *SubmitMissionRequest {
	return tryUnwrap[SubmitMissionRequest](wrapper, REQ_SUBMIT_MISSION)
}

func TryUnwrapAssassinGuessRequest(wrapper RequestWrapper) *AssassinGuessRequest {
	return tryUnwrap[AssassinGuessRequest](wrapper, REQ_ASSASSIN_GUESS)
}

func TryUnwrapTimeoutRequest(wrapper RequestWrapper) *TimeoutRequest {
	return tryUnwrap[TimeoutRequest](wrapper, REQ_TIMEOUT)
}

func TryUnwrapViewRequest(wrapper RequestWrapper) *ViewRequest {
	return tryUnwrap[ViewRequest](wrapper, REQ_VIEW)
}

// Response types
const (
	RESP_ERROR = "Error"

	RESP_JOIN_GAME      = "JoinGame"
	RESP_EXIT_GAME      = "ExitGame"
	RESP_CONFIGURE_GAME = "ConfigureGame"
	RESP_GAME_EVENT     = "GameEvent"
	RESP_GAME_VIEW      = "GameView"
)

type ResponseWrapper struct {
	RespType string `json:"response_type"`
	Data     any    `json:"data,omitempty"`
	ErrMsg   string `json:"error_message,omitempty"`
}

func WrapResponse(respType string, data any) ResponseWrapper {
	return ResponseWrapper{
		RespType: respType,
		Data:     data,
	}
}

func WrapErrResponse(errMsg string) ResponseWrapper {
	return ResponseWrapper{
		RespType: RESP_ERROR,
		ErrMsg:   errMsg,
	}
}

// wrapEngineErr keeps configuration violations machine readable for the
// lobby screen.
func wrapEngineErr(err error) ResponseWrapper {
	resp := WrapErrResponse(err.Error())

	var cerr *avalon.ConfigurationError
	if errors.As(err, &cerr) {
		resp.Data = cerr.Violations
	}

	return resp
}
