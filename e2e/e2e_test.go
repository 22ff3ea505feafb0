package e2e

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/microgrid-lab/mgsim/core/battery"
	"github.com/microgrid-lab/mgsim/core/dispatch"
	"github.com/microgrid-lab/mgsim/core/economics"
	coremetrics "github.com/microgrid-lab/mgsim/core/metrics"
	"github.com/microgrid-lab/mgsim/core/microgrid"
	"github.com/microgrid-lab/mgsim/core/model"
	"github.com/microgrid-lab/mgsim/infra/ingest"
	"github.com/microgrid-lab/mgsim/infra/metrics"
	"github.com/microgrid-lab/mgsim/infra/mqtt"
	"github.com/microgrid-lab/mgsim/internal/eventbus"
)

const (
	e2eOrg    = "mgsim"
	e2eBucket = "mgsim_steps"
	e2eToken  = "e2e-token"
)

// junitReport is a minimal representation of a JUnit XML report. The E2E
// suite writes such a report so CI systems can display the results.
type junitReport struct {
	XMLName  xml.Name        `xml:"testsuite"`
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name    string  `xml:"name,attr"`
	Failure *string `xml:"failure,omitempty"`
	Time    float64 `xml:"time,attr"`
}

// writeJUnit writes the provided report to the given path.
func writeJUnit(path string, rep junitReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")
	return enc.Encode(rep)
}

// startInflux starts an onboarded InfluxDB 2.7 container and returns it
// along with the base URL.
func startInflux(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "e2e",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "e2e-password",
			"DOCKER_INFLUXDB_INIT_ORG":         e2eOrg,
			"DOCKER_INFLUXDB_INIT_BUCKET":      e2eBucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": e2eToken,
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(60 * time.Second),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start influx container: %v", err)
	}
	host, _ := cont.Host(ctx)
	port, _ := cont.MappedPort(ctx, "8086")
	return cont, fmt.Sprintf("http://%s:%s", host, port.Port())
}

// startMosquitto spins up a Mosquitto broker that accepts anonymous
// clients.
func startMosquitto(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start mosquitto: %v", err)
	}
	host, _ := cont.Host(ctx)
	port, _ := cont.MappedPort(ctx, "1883")
	return cont, fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

// Test_E2E_LiveLoop drives the live path against real infrastructure:
// samples travel through Mosquitto, each step lands in InfluxDB and the
// outcome is republished to the result topic.
func Test_E2E_LiveLoop(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skipf("docker not installed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	influxCont, influxURL := startInflux(ctx, t)
	if influxCont != nil {
		defer influxCont.Terminate(ctx) //nolint:errcheck
	}
	mqttCont, mqttURL := startMosquitto(ctx, t)
	if mqttCont != nil {
		defer mqttCont.Terminate(ctx) //nolint:errcheck
	}

	sink := metrics.NewInfluxSink(influxURL, e2eToken, e2eOrg, e2eBucket)

	bcfg := battery.Config{
		Kind:            model.ModelLinear,
		SeriesCells:     100,
		ParallelStrings: 10,
		PackCapacityAh:  32,
		InverterEff:     1,
		DeltaHours:      1,
		SoEMin:          0.1,
		SoEMax:          0.9,
		InitialSoC:      0.5,
		InitialSoE:      0.5,
		HistoryCap:      100,
	}
	bm, err := battery.New(bcfg, nil)
	if err != nil {
		t.Fatalf("battery: %v", err)
	}
	disp, err := dispatch.New(bm, dispatch.Config{MaxPowerKW: 50}, nil)
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	acct, err := economics.NewAccountant(economics.Tariffs{
		Purchase: economics.PurchaseTariff{Mode: economics.ModeFlat, FlatEURPerKWh: 0.25},
	}, bcfg.DeltaHours, bm, nil)
	if err != nil {
		t.Fatalf("accountant: %v", err)
	}
	mg, err := microgrid.New(microgrid.Config{RunID: "e2e-run"}, disp, acct, nil, sink, nil, nil)
	if err != nil {
		t.Fatalf("microgrid: %v", err)
	}

	client, err := mqtt.NewPahoClient(mqtt.Config{Broker: mqttURL, ClientID: "mgsim-e2e"})
	if err != nil {
		t.Fatalf("mqtt client: %v", err)
	}
	defer client.Disconnect()

	src, err := ingest.NewMQTTSource(client, "mgsim/e2e/samples", 8)
	if err != nil {
		t.Fatalf("mqtt source: %v", err)
	}
	defer func() { _ = src.Close() }()

	results := make(chan []byte, 8)
	if err := client.Subscribe("mgsim/e2e/results", func(_ string, payload []byte) {
		results <- payload
	}); err != nil {
		t.Fatalf("subscribe results: %v", err)
	}

	bus := eventbus.NewTyped[coremetrics.StepEvent]()
	defer bus.Close()
	mg.SetEventBus(bus)
	metrics.StartStepCollector(ctx, bus, mqtt.NewResultPublisher(client, "mgsim/e2e/results"))

	samples := []model.PowerSample{
		{PVKW: 10, LoadKW: 2, Alpha: 1},
		{PVKW: 3, LoadKW: 3, Alpha: 1},
		{PVKW: 0, LoadKW: 5, Alpha: 1},
	}
	for i, s := range samples {
		payload, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("marshal sample %d: %v", i, err)
		}
		if err := client.Publish("mgsim/e2e/samples", payload); err != nil {
			t.Fatalf("publish sample %d: %v", i, err)
		}
	}

	stepCtx, stepCancel := context.WithTimeout(ctx, 30*time.Second)
	defer stepCancel()
	for i := range samples {
		sample, err := src.Next(stepCtx)
		if err != nil {
			t.Fatalf("next sample %d: %v", i, err)
		}
		if _, err := mg.Step(stepCtx, sample); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	for i := range samples {
		select {
		case <-results:
		case <-time.After(10 * time.Second):
			t.Fatalf("result %d not republished", i)
		}
	}

	cli := NewInfluxClient(influxURL, e2eOrg, e2eToken)
	defer cli.Close()
	res, err := cli.Query(ctx, fmt.Sprintf(`from(bucket:%q) |> range(start:-1h) |> filter(fn: (r) => r._measurement == "dispatch_step")`, e2eBucket))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer res.Close()
	count := 0
	for res.Next() {
		count++
	}
	if count == 0 {
		t.Fatal("no step points returned from Influx")
	}
	t.Logf("influx returned %d step rows", count)

	rep := junitReport{Name: "e2e", Tests: 1, Cases: []junitTestCase{{Name: "Test_E2E_LiveLoop"}}}
	if err := writeJUnit(filepath.Join(t.TempDir(), "e2e.xml"), rep); err != nil {
		t.Logf("write junit: %v", err)
	}
}
