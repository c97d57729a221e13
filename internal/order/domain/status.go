package domain

// Status is the shared progression code every intake channel is mapped onto.
type Status int

const (
	StatusAccepted   Status = 1
	StatusInProgress Status = 2
	StatusReady      Status = 3
	StatusPrinting   Status = 4
	StatusCompleted  Status = 5
	StatusDelivered  Status = 6
	StatusCancelled  Status = 9
)

var statusLabels = map[Status]string{
	StatusAccepted:   "accepted",
	StatusInProgress: "in progress",
	StatusReady:      "ready",
	StatusPrinting:   "printing",
	StatusCompleted:  "completed",
	StatusDelivered:  "delivered",
	StatusCancelled:  "cancelled",
}

func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return "unknown"
}

func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Chat intake keeps its own status vocabulary; both directions are needed
// because status updates may target either population.
var chatToStatus = map[string]Status{
	"new":       StatusAccepted,
	"confirmed": StatusInProgress,
	"ready":     StatusReady,
	"printing":  StatusPrinting,
	"done":      StatusCompleted,
	"delivered": StatusDelivered,
	"cancelled": StatusCancelled,
}

var statusToChat = map[Status]string{
	StatusAccepted:   "new",
	StatusInProgress: "confirmed",
	StatusReady:      "ready",
	StatusPrinting:   "printing",
	StatusCompleted:  "done",
	StatusDelivered:  "delivered",
	StatusCancelled:  "cancelled",
}

// MapChatStatus folds a chat-native status into the shared enumeration.
// Unknown values land on accepted rather than failing the whole listing.
func MapChatStatus(native string) Status {
	if s, ok := chatToStatus[native]; ok {
		return s
	}
	return StatusAccepted
}

func ChatStatusFor(s Status) (string, bool) {
	native, ok := statusToChat[s]
	return native, ok
}
