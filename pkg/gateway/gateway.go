// Package gateway wires a producer state machine to the host-facing
// hostlink schema, the same "host command maps onto the underlying
// protocol" shape the example corpus's CANopen gateway uses, generalized
// to the OTA producer and to a single, cooperatively-scheduled dispatch
// loop (spec §5) rather than a request/response network server.
package gateway

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/rs/xid"

	"github.com/fieldmesh/loraota/pkg/hostlink"
	"github.com/fieldmesh/loraota/pkg/ota"
	"github.com/fieldmesh/loraota/pkg/producer"
	"github.com/fieldmesh/loraota/pkg/radio"
)

// pollInterval bounds how long one idle loop iteration waits for a
// radio frame before checking the host-request channel again.
const pollInterval = 20 * time.Millisecond

// Gateway serializes host commands and radio traffic for a single
// producer onto one goroutine: Run is the only place producer state is
// touched, so nothing here needs its own locking. This mirrors spec
// §5's requirement that transactional sends and asynchronous Status
// processing never run concurrently against the same not_acked set.
type Gateway struct {
	producer *producer.Producer
	link     *radio.Link
	metrics  *Metrics
	status   *StatusPublisher
}

// New creates a Gateway driving a producer over link. metrics and
// status may both be nil to opt out of Prometheus and Redis respectively.
func New(link *radio.Link, cfg producer.Config, metrics *Metrics, status *StatusPublisher) *Gateway {
	return &Gateway{
		producer: producer.New(link, cfg),
		link:     link,
		metrics:  metrics,
		status:   status,
	}
}

// Producer exposes the underlying producer state machine, for a status
// HTTP server or other read-only observer running alongside Run.
func (g *Gateway) Producer() *producer.Producer {
	return g.producer
}

// Run processes host requests from requests and radio traffic until
// ctx is cancelled or requests is closed. Replies to requests that
// expect one are sent to replies; requests with no reply (OtaData)
// send nothing back.
func (g *Gateway) Run(ctx context.Context, requests <-chan hostlink.Message, replies chan<- hostlink.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-requests:
			if !ok {
				return
			}
			reply, err := g.Dispatch(msg)
			if err != nil {
				log.Warnf("[GATEWAY] dispatch %s failed: %v", msg.Kind, err)
			}
			if reply != nil {
				replies <- *reply
			}
		default:
			g.pollRadio(pollInterval)
		}
	}
}

// pollRadio makes one bounded attempt to receive an asynchronous
// consumer reply (principally a Status following a one-shot ContinueDownload)
// and folds it into producer state.
func (g *Gateway) pollRadio(window time.Duration) {
	frame, err := g.link.ReceiveSingle(window)
	if err != nil {
		return
	}
	outcome, err := g.producer.ProcessResponse(frame.Payload)
	if err != nil {
		log.Debugf("[GATEWAY] dropped async frame: %v", err)
		return
	}
	g.observe(outcome)
}

func (g *Gateway) observe(outcome producer.Outcome) {
	g.metrics.setNotAcked(len(outcome.NotAcked))
	if g.status != nil {
		_ = g.status.Publish(context.Background(), g.producer.Destination(), outcome.InProgress, outcome.NotAcked, outcome.LastAcked)
	}
	if outcome.Kind == producer.OutcomeDoneAck {
		g.metrics.incTransfersCompleted()
	}
}

// Dispatch maps one host request onto the producer and returns the
// reply to send back, or nil if the request has no reply of its own.
func (g *Gateway) Dispatch(msg hostlink.Message) (*hostlink.Message, error) {
	switch msg.Kind {
	case hostlink.KindPingRequest:
		reply := hostlink.FromPingResponse(hostlink.PingResponse{})
		return &reply, nil

	case hostlink.KindOtaInitRequest:
		return g.handleInit(msg.OtaInitRequest)

	case hostlink.KindOtaData:
		return nil, g.handleData(msg.OtaData)

	case hostlink.KindOtaGetStatus:
		req := msg.OtaGetStatus
		snap := g.producer.Snapshot()
		reply := hostlink.FromOtaStatus(hostlink.OtaStatus{
			Destination: req.Destination,
			InProgress:  snap.InProgress,
			NotAcked:    snap.NotAcked,
			LastAcked:   snap.LastAcked,
		})
		return &reply, nil

	case hostlink.KindOtaDoneRequest:
		return g.handleDone(msg.OtaDoneRequest)

	case hostlink.KindOtaAbortRequest:
		return g.handleAbort(msg.OtaAbortRequest)

	default:
		return nil, hostlink.ErrInvalidMessageType
	}
}

func (g *Gateway) handleInit(req *hostlink.OtaInitRequest) (*hostlink.Message, error) {
	session := xid.New().String()
	logger := log.WithField("session", session)
	logger.Infof("[GATEWAY] starting OTA to %d: %d bytes in %d blocks", req.Destination, req.BinarySize, req.BlockCount)

	_, err := g.producer.InitDownload(req.Destination, ota.Init{
		BinarySize: req.BinarySize,
		SHA256:     req.SHA256,
		BlockSize:  req.BlockSize,
		BlockCount: req.BlockCount,
	})
	if err != nil {
		g.metrics.incInitFailures()
		logger.Warnf("[GATEWAY] init failed: %v", err)
		return nil, err
	}
	g.metrics.incTransfersStarted()
	reply := hostlink.FromOtaInitAck(hostlink.OtaInitAck{Destination: req.Destination})
	return &reply, nil
}

func (g *Gateway) handleData(req *hostlink.OtaData) error {
	err := g.producer.ContinueDownload(ota.Data{Index: req.Index, Bytes: req.Bytes})
	if err == nil {
		g.metrics.incBlocksSent()
	}
	return err
}

func (g *Gateway) handleDone(req *hostlink.OtaDoneRequest) (*hostlink.Message, error) {
	outcome, err := g.producer.DoneDownload()
	if err != nil {
		if errors.Is(err, producer.ErrNotStarted) || outcome.Kind != producer.OutcomeStatus {
			return nil, err
		}
		// A trailing Status snapshot, not yet terminal: surface it so
		// the host can decide whether to retransmit missing blocks.
		reply := hostlink.FromOtaStatus(hostlink.OtaStatus{
			Destination: req.Destination,
			InProgress:  outcome.InProgress,
			NotAcked:    outcome.NotAcked,
			LastAcked:   outcome.LastAcked,
		})
		return &reply, err
	}
	g.metrics.incTransfersCompleted()
	reply := hostlink.FromOtaDoneAck(hostlink.OtaDoneAck{Destination: req.Destination})
	return &reply, nil
}

func (g *Gateway) handleAbort(req *hostlink.OtaAbortRequest) (*hostlink.Message, error) {
	_, err := g.producer.AbortDownload()
	if err != nil {
		return nil, err
	}
	g.metrics.incTransfersAborted()
	reply := hostlink.FromOtaAbortAck(hostlink.OtaAbortAck{Destination: req.Destination})
	return &reply, nil
}
