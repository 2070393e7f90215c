package main

import (
	"net/http"
)

func (a *app) router() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/", a.proxy)

	if a.collector != nil {
		mux.HandleFunc("/metrics", a.collector.Handler(a.lb.Name))
		mux.Handle("/metrics/prometheus", a.collector.PrometheusHandler())
	}

	if a.admin != nil {
		mux.Handle("/admin/", a.guard.Handle(a.admin.Routes()))
	}

	return mux
}
