// Package projection materializes the user and device read models from the
// events the login flows emit, and serves them back through the read-only
// repository interfaces the flows consult.
//
// Flows never write identity records. Every mutation arrives here as a
// flow.Event - user.upserted, user.logged_in, device.seen - and is applied
// with idempotent upserts, so replaying an event log converges on the same
// state. Store implements flow.EventEmitter directly for single-service
// deployments where events are applied inline; deployments with a broker put
// the queue between the flow and Apply instead.
package projection
