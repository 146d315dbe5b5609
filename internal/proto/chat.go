package proto

// Message is a mailbox entry as seen on the wire.
type Message struct {
	Id      string `json:"id"`
	Sender  string `json:"sender"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type VersionRequest struct {
	Version string `json:"version"`
}

type VersionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Status         string `json:"status"`
	Message        string `json:"message"`
	UnreadMessages int32  `json:"unread_messages"`
}

type LogoutRequest struct {
	Username string `json:"username"`
}

type LogoutResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ListUsersResponse struct {
	Status string   `json:"status"`
	Users  []string `json:"users"`
}

type SendMessageRequest struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

type SendMessageResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	MessageId string `json:"message_id"`
}

type MarkReadRequest struct {
	Username string `json:"username"`
	Contact  string `json:"contact"`
	BatchNum int32  `json:"batch_num"`
}

type MarkReadResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Count   int32  `json:"count"`
}

type DeleteUnreadMessageRequest struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	MessageId string `json:"message_id"`
}

type DeleteUnreadMessageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ReceiveMessagesRequest struct {
	Username string `json:"username"`
}

type ReceiveMessagesResponse struct {
	Status   string     `json:"status"`
	Message  string     `json:"message"`
	Messages []*Message `json:"messages"`
}

type DeleteAccountRequest struct {
	Username string `json:"username"`
}

type DeleteAccountResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type SubscribeRequest struct {
	Username string `json:"username"`
}

type GetLeaderInfoResponse struct {
	Status string `json:"status"`
	Info   string `json:"info"`
}

type RehydrateResponse struct {
	Status      string `json:"status"`
	ActiveUsers int32  `json:"active_users"`
	Subscribers int32  `json:"subscribers"`
}

// Replication payloads. Each mirrors the client-facing request plus whatever
// the leader assigned (message ids).

type ReplicateRegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ReplicateUserRequest struct {
	Username string `json:"username"`
}

type ReplicateMessageRequest struct {
	MessageId string `json:"message_id"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
	Status    string `json:"status"`
}

type ReplicateMarkReadRequest struct {
	Username   string   `json:"username"`
	Contact    string   `json:"contact"`
	BatchNum   int32    `json:"batch_num"`
	MessageIds []string `json:"message_ids"`
}

type ReplicateDeleteMessageRequest struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	MessageId string `json:"message_id"`
}

type ReplicateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type PingResponse struct {
	Alive  bool  `json:"alive"`
	NodeId int32 `json:"node_id"`
}
