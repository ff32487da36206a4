package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/robotalks/thermo.go/pkg/telemetry"
)

var (
	mqttURL = "mqtt://localhost:1883/thermo/"
)

func init() {
	if val := os.Getenv("THERMO_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := telemetry.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}

	q.Sub("#", telemetry.Handler(func(topic string, payload []byte) {
		switch {
		case strings.HasSuffix(topic, telemetry.TopicMeta):
			log.Printf("%s: %s", topic, string(payload))
		case strings.HasSuffix(topic, telemetry.TopicStatus):
			report, err := telemetry.DecodeStatus(payload)
			if err != nil {
				log.Printf("%s: bad status: %v", topic, err)
				return
			}
			log.Printf("%s: %s", topic, report.String())
		case strings.HasSuffix(topic, telemetry.TopicFault):
			report, err := telemetry.DecodeFault(payload)
			if err != nil {
				log.Printf("%s: bad fault: %v", topic, err)
				return
			}
			log.Printf("%s: %s %s: %s", topic, report.Driver, report.Kind, report.Message)
		}
	}))
	<-(chan struct{})(nil)
}
