package protocol

// MessageType tags a request.
type MessageType uint8

const (
	MessageSet MessageType = iota
	MessageGet
	MessageListen
)

func (t MessageType) String() string {
	switch t {
	case MessageSet:
		return "set"
	case MessageGet:
		return "get"
	case MessageListen:
		return "listen"
	default:
		return "unknown"
	}
}

// Message is a client request: [type, item, value]. Item is meaningful for
// Set and Get, Value only for Set.
type Message struct {
	_     struct{} `cbor:",toarray"`
	Type  MessageType
	Item  Item
	Value string
}

func Set(item Item, value string) Message {
	return Message{Type: MessageSet, Item: item, Value: value}
}

func Get(item Item) Message {
	return Message{Type: MessageGet, Item: item}
}

func Listen() Message {
	return Message{Type: MessageListen}
}

// ReplyType tags a reply.
type ReplyType uint8

const (
	ReplyValue ReplyType = iota
	ReplyTuples
	ReplyAllTuples
	ReplyError
)

func (t ReplyType) String() string {
	switch t {
	case ReplyValue:
		return "value"
	case ReplyTuples:
		return "tuples"
	case ReplyAllTuples:
		return "all_tuples"
	case ReplyError:
		return "error"
	default:
		return "unknown"
	}
}

// Tuple is one name/value pair of a provider's state.
type Tuple struct {
	_     struct{} `cbor:",toarray"`
	Name  string
	Value string
}

// Group is one provider's tuples within a global snapshot.
type Group struct {
	_      struct{} `cbor:",toarray"`
	Name   string
	Tuples []Tuple
}

// Reply answers a Get or Set: [type, item, value, tuples, groups].
//
//	Value:     Item, Value
//	Tuples:    Item, Tuples
//	AllTuples: Groups
//	Error:     Value holds the message
type Reply struct {
	_      struct{} `cbor:",toarray"`
	Type   ReplyType
	Item   Item
	Value  string
	Tuples []Tuple
	Groups []Group
}

func ValueReply(item Item, value string) Reply {
	return Reply{Type: ReplyValue, Item: item, Value: value}
}

func TuplesReply(item Item, tuples []Tuple) Reply {
	return Reply{Type: ReplyTuples, Item: item, Tuples: tuples}
}

func AllTuplesReply(groups []Group) Reply {
	return Reply{Type: ReplyAllTuples, Groups: groups}
}

func ErrorReply(msg string) Reply {
	return Reply{Type: ReplyError, Value: msg}
}

// Err returns the reply's error message, if it is an Error reply.
func (r Reply) Err() (string, bool) {
	return r.Value, r.Type == ReplyError
}

// Lookup returns the value of the named tuple.
func Lookup(tuples []Tuple, name string) (string, bool) {
	for _, t := range tuples {
		if t.Name == name {
			return t.Value, true
		}
	}

	return "", false
}
