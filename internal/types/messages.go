package types

const (
	TypeRoomList = "room_list"
	TypeRoom     = "room"
	TypeGameList = "game_list"
	TypeInitData = "init_data"
	TypePhase    = "phase"
	TypeHandList = "hand_list"
	TypeGameEnd  = "game_end"
	TypeMessage  = "message"
)

const (
	ResponseSuccess = "success"
	ResponseError   = "error"
)

// ServerMessage is every frame the server sends. Data messages carry type and
// data; notices and errors carry request, response and message.
type ServerMessage struct {
	Request  Kind   `json:"request,omitempty"`
	Response string `json:"response,omitempty"`
	Type     string `json:"type"`
	Message  string `json:"message,omitempty"`
	Data     any    `json:"data,omitempty"`
}

func Data(typ string, data any) ServerMessage {
	return ServerMessage{Type: typ, Data: data}
}

func Notice(kind Kind, message string) ServerMessage {
	return ServerMessage{Request: kind, Response: ResponseSuccess, Type: TypeMessage, Message: message}
}

func Error(kind Kind, err error) ServerMessage {
	return ServerMessage{Request: kind, Response: ResponseError, Type: TypeMessage, Message: err.Error()}
}

func (m ServerMessage) IsError() bool { return m.Response == ResponseError }
