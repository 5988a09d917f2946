package models

// User-facing messages shared by the HTTP handlers and the terminal client.
const (
	MsgSaveFailed     = "데이터 저장에 실패했습니다."
	MsgDispatchOK     = "일기가 선생님께 안전하게 전달되었어요! 😊"
	MsgDispatchFailed = "오류가 발생하여 일기를 전송하지 못했습니다. 인터넷 연결을 확인해주세요."
	MsgNoStudentName  = "학생 정보가 없습니다. 이름을 입력하고 [이름 설정] 버튼을 눌러주세요."
	MsgAINotReady     = "AI 기능이 설정되지 않았습니다. 관리자에게 문의해주세요."
	MsgAIFailed       = "AI 응답을 받지 못했어요. 잠시 후 다시 시도해 주세요."
)

// WebSocket message types
const (
	WSTypeSnapshot = "snapshot"
	WSTypeError    = "error"
)

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type SnapshotEvent struct {
	Path   string       `json:"path"`
	Exists bool         `json:"exists"`
	Record *DailyRecord `json:"record,omitempty"`
}

type ErrorEvent struct {
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
