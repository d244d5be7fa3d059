package stream

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/mamadbah2/leitor/internal/domain/models"
	"github.com/mamadbah2/leitor/pkg/clients/backend"
)

type fakeSwitch struct {
	startErr error
	stopErr  error
	startURL string
	stops    int
}

func (s *fakeSwitch) StartStream(ctx context.Context, url string) (*models.APIMessage, error) {
	s.startURL = url
	if s.startErr != nil {
		return nil, s.startErr
	}
	return &models.APIMessage{Message: "Stream iniciado com sucesso", URL: url}, nil
}

func (s *fakeSwitch) StopStream(ctx context.Context) (*models.APIMessage, error) {
	s.stops++
	if s.stopErr != nil {
		return nil, s.stopErr
	}
	return &models.APIMessage{Message: "Stream parado"}, nil
}

const cameraURL = "http://192.168.1.244:8080/video"

func TestStartSuccessLocksURL(t *testing.T) {
	sw := &fakeSwitch{}
	control := NewControl(sw, Options{DefaultURL: cameraURL}, nil)

	if err := control.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	state := control.State()
	if state.Status != Active || state.Loading {
		t.Fatalf("state = %+v", state)
	}
	if state.Alert != "Stream iniciado com sucesso!" {
		t.Fatalf("alert = %q", state.Alert)
	}
	if sw.startURL != cameraURL {
		t.Fatalf("started url = %q", sw.startURL)
	}
	if err := control.SetURL("http://other/video"); !errors.Is(err, ErrURLLocked) {
		t.Fatalf("SetURL() = %v, want ErrURLLocked", err)
	}
	if control.State().URL != cameraURL {
		t.Fatal("url must not change while active")
	}
}

func TestStartFailureStaysInactive(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantAlert string
	}{
		{
			name:      "backend rejects",
			err:       &backend.StatusError{Code: http.StatusBadRequest, Detail: "Não foi possível abrir o stream"},
			wantAlert: "Erro ao iniciar stream",
		},
		{
			name:      "backend unreachable",
			err:       &backend.TransportError{Op: "start stream", Err: errors.New("connection refused")},
			wantAlert: "Erro ao conectar com o backend",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			control := NewControl(&fakeSwitch{startErr: tc.err}, Options{DefaultURL: cameraURL}, nil)
			if err := control.Start(context.Background()); err == nil {
				t.Fatal("expected error")
			}
			state := control.State()
			if state.Status != Inactive || state.Loading {
				t.Fatalf("state = %+v", state)
			}
			if state.Alert != tc.wantAlert {
				t.Fatalf("alert = %q, want %q", state.Alert, tc.wantAlert)
			}
			if err := control.SetURL("http://other/video"); err != nil {
				t.Fatalf("SetURL() while inactive = %v", err)
			}
		})
	}
}

func TestStartRequiresURL(t *testing.T) {
	sw := &fakeSwitch{}
	control := NewControl(sw, Options{}, nil)
	if err := control.Start(context.Background()); !errors.Is(err, ErrEmptyURL) {
		t.Fatalf("Start() = %v, want ErrEmptyURL", err)
	}
	if sw.startURL != "" {
		t.Fatal("no request expected")
	}
}

func TestStopConfirmed(t *testing.T) {
	sw := &fakeSwitch{}
	control := NewControl(sw, Options{DefaultURL: cameraURL}, nil)
	_ = control.Start(context.Background())

	if err := control.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	state := control.State()
	if state.Status != Inactive || state.Alert != "Stream parado" {
		t.Fatalf("state = %+v", state)
	}
}

func TestStopFailureKeepsActive(t *testing.T) {
	sw := &fakeSwitch{}
	control := NewControl(sw, Options{DefaultURL: cameraURL}, nil)
	_ = control.Start(context.Background())

	sw.stopErr = &backend.TransportError{Op: "stop stream", Err: errors.New("timeout")}
	if err := control.Stop(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	state := control.State()
	if state.Status != Active {
		t.Fatalf("status = %q, want Active", state.Status)
	}
	if state.Alert != "Erro ao parar stream" {
		t.Fatalf("alert = %q", state.Alert)
	}
}

func TestFireAndForgetStop(t *testing.T) {
	sw := &fakeSwitch{}
	control := NewControl(sw, Options{DefaultURL: cameraURL, FireAndForgetStop: true}, nil)
	_ = control.Start(context.Background())

	sw.stopErr = &backend.StatusError{Code: http.StatusInternalServerError}
	if err := control.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if status := control.State().Status; status != Inactive {
		t.Fatalf("status = %q, want Inactive", status)
	}
}

func TestRunningOptionStartsActive(t *testing.T) {
	sw := &fakeSwitch{}
	control := NewControl(sw, Options{DefaultURL: cameraURL, Running: true}, nil)
	if control.State().Status != Active {
		t.Fatal("expected Active")
	}

	sw.stopErr = &backend.StatusError{Code: http.StatusBadGateway}
	_ = control.Stop(context.Background())
	if control.State().Status != Active {
		t.Fatal("unconfirmed stop must keep Active")
	}
	if sw.stops != 1 {
		t.Fatalf("stops = %d", sw.stops)
	}
}
