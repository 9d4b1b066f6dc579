package dogstatsd

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/staex-io/did-provisioner/pkg/metrics/metricsTypes"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func readPackets(t *testing.T, conn net.PacketConn, want string) string {
	var received strings.Builder
	buf := make([]byte, 65536)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(deadline)
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			break
		}
		received.Write(buf[:n])
		if strings.Contains(received.String(), want) {
			break
		}
	}
	return received.String()
}

func Test_DogStatsdClient(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	raw, err := statsd.New(conn.LocalAddr().String(), statsd.WithNamespace(namespace), statsd.WithoutTelemetry())
	assert.Nil(t, err)
	defer raw.Close()
	client := NewDogStatsdClientWith(raw, zap.NewNop())

	t.Run("Should send counters with tags", func(t *testing.T) {
		err := client.Incr(metricsTypes.Metric_Incr_TransactionSubmitted, []metricsTypes.MetricsLabel{
			{Name: "call", Value: "flip"},
		}, 1)
		assert.Nil(t, err)
		client.Flush()

		got := readPackets(t, conn, "provisioner.tx.submitted:1|c|#call:flip")
		assert.Contains(t, got, "provisioner.tx.submitted:1|c|#call:flip")
	})
	t.Run("Should format tags", func(t *testing.T) {
		assert.Equal(t, []string{"pallet:Balances", "event:Transfer"}, formatTags([]metricsTypes.MetricsLabel{
			{Name: "pallet", Value: "Balances"},
			{Name: "event", Value: "Transfer"},
		}))
		assert.Equal(t, []string{}, formatTags(nil))
	})
}
