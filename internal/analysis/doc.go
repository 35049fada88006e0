// Package analysis implements the test-execution video triage pipeline:
// given one failed test in a launch, it locates and downloads the session
// recording, samples frames around the failure window, reconciles the
// recorded execution against the authored test-case steps, and produces a
// root-cause verdict with confidence, evidence and recommendations.
//
// The pipeline is strictly sequential; the comparator and the prediction
// engine are pure functions of their inputs. External systems (reporting
// API, TCM, media handling) are injected behind small interfaces.
package analysis
