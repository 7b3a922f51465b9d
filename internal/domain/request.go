package domain

// Participant types used by the videoroom join request.
const (
	PTypePublisher  = "publisher"
	PTypeSubscriber = "subscriber"
)

const (
	DisplayPresenter = "Presenter"
	DisplayViewer    = "Viewer"
)

// CreateRoomRequest ensures the room exists with room for a single publisher.
type CreateRoomRequest struct {
	Request    string `json:"request"`
	Room       RoomID `json:"room"`
	Publishers int    `json:"publishers"`
}

func NewCreateRoom(room RoomID) CreateRoomRequest {
	return CreateRoomRequest{Request: "create", Room: room, Publishers: 1}
}

type JoinRequest struct {
	Request string `json:"request"`
	Room    RoomID `json:"room"`
	PType   string `json:"ptype"`
	Display string `json:"display"`
}

func NewJoinPublisher(room RoomID) JoinRequest {
	return JoinRequest{Request: "join", Room: room, PType: PTypePublisher, Display: DisplayPresenter}
}

func NewJoinSubscriber(room RoomID) JoinRequest {
	return JoinRequest{Request: "join", Room: room, PType: PTypeSubscriber, Display: DisplayViewer}
}

type PublishRequest struct {
	Request string `json:"request"`
	Audio   bool   `json:"audio"`
	Video   bool   `json:"video"`
}

func NewPublish() PublishRequest {
	return PublishRequest{Request: "publish", Audio: true, Video: true}
}

type SubscribeRequest struct {
	Request    string `json:"request"`
	Room       RoomID `json:"room"`
	Feed       FeedID `json:"feed"`
	OfferVideo bool   `json:"offer_video"`
	OfferAudio bool   `json:"offer_audio"`
}

func NewSubscribe(room RoomID, feed FeedID) SubscribeRequest {
	return SubscribeRequest{Request: "subscribe", Room: room, Feed: feed, OfferVideo: true, OfferAudio: true}
}

// StartRequest carries the viewer's answer back to the relay.
type StartRequest struct {
	Request string `json:"request"`
	Room    RoomID `json:"room"`
	Audio   bool   `json:"audio"`
	Video   bool   `json:"video"`
}

func NewStart(room RoomID) StartRequest {
	return StartRequest{Request: "start", Room: room, Audio: true, Video: true}
}
