package confluence

import (
	"fmt"
	"net/http"

	"gopkg.in/dnaeon/go-vcr.v3/cassette"
	"gopkg.in/dnaeon/go-vcr.v3/recorder"
)

// Recording swaps the API's HTTP client for a go-vcr recorder backed by the named cassette
// (without the .yaml suffix).  New interactions are appended and replayed on the next run.  The
// returned function stops the recorder and flushes the cassette to disk.
func (api *API) Recording(cassetteName string, mode recorder.Mode) (func() error, error) {
	opts := &recorder.Options{
		CassetteName:       cassetteName,
		Mode:               mode,
		SkipRequestLatency: true,
		RealTransport:      http.DefaultTransport,
	}
	r, err := recorder.NewWithOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("confluence: couldn't set up go-vcr recording: %w", err)
	}

	// Add a hook which removes Authorization headers from all requests
	hook := func(i *cassette.Interaction) error {
		delete(i.Request.Headers, "Authorization")
		return nil
	}
	r.AddHook(hook, recorder.AfterCaptureHook)
	r.SetReplayableInteractions(true)

	api.Client = r.GetDefaultClient()

	return r.Stop, nil
}
