// Package api implements the HTTP API and WebSocket progress stream of
// plantline.
//
// Routes live under /api/v1. Health and metrics are public; everything
// else needs a bearer token minted with `plantline token`. Tokens carry a
// role: viewers read topology, plans and run history, operators may also
// start scans and simulations.
//
// Runs are asynchronous. POST /runs/scan and POST /runs/simulate answer
// 202 with the run id and execute in the background; only one run may be
// active, a second request gets 409. Progress is broadcast on the
// WebSocket hub as "run.progress" and "run.completed" events; clients
// subscribe with {"type":"subscribe","payload":{"channels":[...]}}.
//
// Usage:
//
//	srv, err := api.New(api.Deps{...})
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//	defer srv.Close()
package api
