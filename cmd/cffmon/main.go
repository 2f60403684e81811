package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang/glog"

	fx "github.com/TopGunSnake/example-simulators/pkg/framework"
	"github.com/TopGunSnake/example-simulators/pkg/telemetry"
	"github.com/TopGunSnake/example-simulators/pkg/telemetry/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/cff/"
)

func init() {
	if val := os.Getenv("CFF_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func printEvent(topic string, payload []byte) {
	ev, err := telemetry.DecodeEvent(payload)
	if err != nil {
		glog.Warningf("%s: bad event: %v", topic, err)
		return
	}
	ts := time.Unix(0, ev.UnixNano).Format("15:04:05.000000")
	switch ev.Type {
	case telemetry.EventTransition:
		fmt.Printf("%s %s [%s] %s -> %s (%s)\n", ts, ev.Node, ev.Type, ev.From, ev.To, ev.Message)
	default:
		fmt.Printf("%s %s [%s] %s %s\n", ts, ev.Node, ev.Type, ev.Message, ev.Detail)
	}
}

func main() {
	flag.Parse()
	defer glog.Flush()

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		glog.Exit(err)
	}
	q.Sub("+/"+mqtt.MetaTopic, func(topic string, payload []byte) {
		node := strings.TrimSuffix(topic, "/"+mqtt.MetaTopic)
		if len(payload) == 0 {
			fmt.Printf("%s left\n", node)
			return
		}
		fmt.Printf("%s joined: %s\n", node, string(payload))
	})
	q.Sub("+/"+mqtt.EventsTopic, printEvent)
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		glog.Exit(token.Error())
	}
	defer q.Close()

	err = fx.NewRunner().HandleSignals().
		Go(fx.RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})).
		Wait()
	if err != nil {
		glog.Exit(err)
	}
}
