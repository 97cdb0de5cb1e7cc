/*
Copyright 2016 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package logging configures the process-wide logrus logger used by every
// other package in the engine. Nothing outside this package should call
// logrus.SetFormatter or logrus.SetLevel.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Init configures the root logger with a JSON formatter and a fixed
// "component" field, mirroring cmd/hook/main.go's
// logrus.SetFormatter(logrusutil.NewDefaultFieldsFormatter(...)) call.
func Init(component string, debug bool) *logrus.Entry {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.JSONFormatter{})
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
	return logrus.WithField("component", component)
}
