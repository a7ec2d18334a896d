package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	job := "test-job"
	metrics.ObserveDuration(job, 250*time.Millisecond)
	finished := time.Unix(1767225600, 0)
	metrics.IncSuccess(job, finished)
	metrics.IncFailure(job)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "portfolios_job_success_total", "job", job); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "portfolios_job_failure_total", "job", job); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "portfolios_job_duration_seconds", "job", job); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	if got, err := fetchGaugeValue(mfs, "portfolios_job_last_success_timestamp_seconds", "job", job); err != nil {
		t.Fatalf("fetch last success: %v", err)
	} else if got != float64(finished.Unix()) {
		t.Fatalf("expected last success %d, got %f", finished.Unix(), got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var cron *CronJobMetrics
	cron.ObserveDuration("job", time.Second)
	cron.IncSuccess("job", time.Now())
	cron.IncFailure("job")

	NewCronJobMetrics(nil).IncFailure("job")
	NewLifecycleMetrics(nil).IncOutcome("sync", "created")
}

func TestLifecycleMetricsCountOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLifecycleMetrics(reg)
	m.IncOutcome("close_cycle", "transitioned")
	m.IncOutcome("close_cycle", "transitioned")
	m.IncOutcome("close_cycle", "")
	m.ObserveEligible("close_cycle", 3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "portfolios_client_outcomes_total", "outcome", "transitioned"); err != nil {
		t.Fatalf("fetch outcomes: %v", err)
	} else if got != 2 {
		t.Fatalf("expected 2 transitions, got %f", got)
	}
	if _, err := fetchCounterValue(mfs, "portfolios_client_outcomes_total", "outcome", "unknown"); err != nil {
		t.Fatalf("expected empty outcome to be labelled unknown: %v", err)
	}
	if got, err := fetchHistogramSum(mfs, "portfolios_run_eligible_clients", "operator", "close_cycle"); err != nil {
		t.Fatalf("fetch eligible: %v", err)
	} else if got != 3 {
		t.Fatalf("expected eligible sum 3, got %f", got)
	}
}

func fetchGaugeValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetGauge().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("gauge %q missing label %s=%s", name, label, value)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
