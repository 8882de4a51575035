// Package logging renders gateway events as structured logrus entries.
package logging

import (
	"context"

	"github.com/sirupsen/logrus"

	eventbus "github.com/restgraph/restgraph/internal/eventbus"
	events "github.com/restgraph/restgraph/internal/events"
	reqid "github.com/restgraph/restgraph/internal/reqid"
)

// Setup configures the standard logger and attaches eventbus subscribers.
// format is "text" or "json"; level is any logrus level name.
func Setup(level, format string) error {
	lv, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lv)
	if format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	register()
	return nil
}

func register() {
	eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
		withReqID(ctx).WithFields(logrus.Fields{
			"method":   e.Request.Method,
			"path":     e.Request.URL.Path,
			"status":   e.Status,
			"duration": e.Duration,
		}).Info("http request")
	})

	eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
		entry := withReqID(ctx).WithFields(logrus.Fields{
			"operation": e.OperationName,
			"type":      e.OperationType,
			"errors":    len(e.Errors),
			"duration":  e.Duration,
		})
		if len(e.Errors) > 0 {
			entry.Warn("graphql operation finished with errors")
			return
		}
		entry.Debug("graphql operation finished")
	})

	eventbus.Subscribe(func(ctx context.Context, e events.RESTCallFinish) {
		entry := withReqID(ctx).WithFields(logrus.Fields{
			"method":   e.Method,
			"url":      e.URL,
			"status":   e.Status,
			"duration": e.Duration,
		})
		if e.Err != nil {
			entry.WithError(e.Err).Warn("rest call failed")
			return
		}
		entry.Debug("rest call")
	})
}

func withReqID(ctx context.Context) *logrus.Entry {
	if rid, ok := reqid.FromContext(ctx); ok {
		return logrus.WithField("reqid", rid)
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
