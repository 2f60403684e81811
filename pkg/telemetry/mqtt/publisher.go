// Package mqtt publishes telemetry events to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	fx "github.com/TopGunSnake/example-simulators/pkg/framework"
	"github.com/TopGunSnake/example-simulators/pkg/telemetry"
)

// Topic suffixes under <prefix><node>/.
const (
	EventsTopic = "events"
	MetaTopic   = "meta"
)

const metaTimeout = 5 * time.Second

// Publisher implements telemetry.Recorder by publishing events of a node.
// The node meta is retained and cleared by a last will.
type Publisher struct {
	Queue *Queue
	Info  telemetry.NodeInfo

	metaJSON []byte
	events   *fx.Mailbox[*telemetry.Event]
}

// NewPublisher creates a Publisher.
func NewPublisher(brokerURL string, info telemetry.NodeInfo) (*Publisher, error) {
	meta, err := json.Marshal(&info)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+info.Node+"/"+MetaTopic, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("cff:" + info.Node)
	}
	p := &Publisher{
		Queue:    NewQueue(opts, topicPrefix),
		Info:     info,
		metaJSON: meta,
		events:   fx.NewMailbox[*telemetry.Event](),
	}
	p.Queue.OnConnect = func(*Queue) { p.publishMeta(p.metaJSON) }
	return p, nil
}

// Name implements Named.
func (p *Publisher) Name() string {
	return "telemetry"
}

// Record implements telemetry.Recorder.
func (p *Publisher) Record(ev *telemetry.Event) {
	if ev.Node == "" {
		ev.Node = p.Info.Node
	}
	if ev.Role == "" {
		ev.Role = p.Info.Role
	}
	p.events.Send(ev)
}

// Close stops accepting events. Run publishes the events queued so far,
// clears the node meta and returns.
func (p *Publisher) Close() {
	p.events.Close()
}

// Run implements Runnable. It returns once Close is called and the
// queued events are published, not when ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	if token := p.Queue.Connect(); token.Wait() && token.Error() != nil {
		glog.Warningf("telemetry: connect: %v", token.Error())
	}
	defer p.Queue.Close()
	p.drain(func(ev *telemetry.Event) {
		data, err := ev.Encode()
		if err != nil {
			glog.Errorf("telemetry: encode: %v", err)
			return
		}
		p.Queue.Pub(p.Info.Node+"/"+EventsTopic, data)
	})
	if !p.publishMeta(nil).WaitTimeout(metaTimeout) {
		glog.Warning("telemetry: clearing meta timed out")
	}
	return nil
}

// Closed tells whether Close has been called.
func (p *Publisher) Closed() bool {
	return p.events.Closed()
}

func (p *Publisher) drain(publish func(*telemetry.Event)) {
	for {
		ev, err := p.events.Recv(context.Background())
		if err != nil {
			return
		}
		publish(ev)
	}
}

func (p *Publisher) publishMeta(meta []byte) paho.Token {
	return p.Queue.PubWith(p.Info.Node+"/"+MetaTopic, meta, 1, true)
}
