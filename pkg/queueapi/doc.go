// Package queueapi exposes a taskqueue.Queue over HTTP for inspection and
// control.
//
// Routes:
//
//	GET    /healthz               liveness, or readiness when checks are configured
//	GET    /stats                 queue statistics
//	GET    /progress              finished/total progress
//	GET    /tasks                 task snapshots, optionally ?custom_id=
//	GET    /tasks/{id}            one task snapshot
//	DELETE /tasks                 clear the queue
//	DELETE /tasks/completed       remove finished tasks
//	POST   /tasks/{id}/cancel     cancel one task
//	POST   /start|pause|resume|stop
//	POST   /skip?count=N&current=true
//	POST   /jump/{id}
//
// Every response is JSON. Each request carries an X-Request-ID which is also
// attached to log records through RequestIDExtractor.
package queueapi
