package rtc

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dkeye/roomcast/internal/core"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

func newTestConnection(t *testing.T) *WebRTCConnection {
	t.Helper()
	api, err := NewAPI()
	if err != nil {
		t.Fatalf("NewAPI: %v", err)
	}
	c, err := NewWebRTCConnection(api, webrtc.Configuration{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewWebRTCConnection: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func newVideoTrack(t *testing.T) webrtc.TrackLocal {
	t.Helper()
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", "camera")
	if err != nil {
		t.Fatalf("NewTrackLocalStaticSample: %v", err)
	}
	return track
}

func TestCreateOffer_SendOnlyVideo(t *testing.T) {
	t.Parallel()
	c := newTestConnection(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	offer, err := c.CreateOffer(ctx, core.MediaConstraints{VideoSend: true}, []webrtc.TrackLocal{newVideoTrack(t)})
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}
	if offer.Type != webrtc.SDPTypeOffer {
		t.Errorf("type = %s", offer.Type)
	}
	if !strings.Contains(offer.SDP, "m=video") {
		t.Error("offer has no video section")
	}
	if !strings.Contains(offer.SDP, "a=sendonly") {
		t.Error("video section should be sendonly")
	}
}

func TestCreateAnswer_ReceiveOnly(t *testing.T) {
	t.Parallel()
	publisher := newTestConnection(t)
	viewer := newTestConnection(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	offer, err := publisher.CreateOffer(ctx, core.MediaConstraints{VideoSend: true}, []webrtc.TrackLocal{newVideoTrack(t)})
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}

	answer, err := viewer.CreateAnswer(ctx, *offer, core.MediaConstraints{AudioRecv: true, VideoRecv: true})
	if err != nil {
		t.Fatalf("CreateAnswer: %v", err)
	}
	if !strings.Contains(answer.SDP, "a=recvonly") {
		t.Error("answer should be recvonly")
	}

	if err := publisher.ApplyRemote(*answer); err != nil {
		t.Fatalf("ApplyRemote: %v", err)
	}
	// the same answer again is accepted
	if err := publisher.ApplyRemote(*answer); err != nil {
		t.Fatalf("ApplyRemote twice: %v", err)
	}
}

func TestClose_FiresOnClosedOnce(t *testing.T) {
	t.Parallel()
	c := newTestConnection(t)

	var n atomic.Int32
	c.OnClosed(func() { n.Add(1) })
	c.Close()
	c.Close()

	if got := n.Load(); got != 1 {
		t.Fatalf("OnClosed fired %d times, want 1", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := c.CreateOffer(ctx, core.MediaConstraints{}, nil); err == nil {
		t.Fatal("CreateOffer on a closed connection should fail")
	}
}
