// Package actions turns a placement decision (current role, next role,
// allocated node) into the concrete start/stop/promote/demote/monitor
// actions that make it happen, plus the migration triples and recurring
// monitors the resource's operation table calls for.
//
// Every action is created through types.WorkingSet.GetOrCreateAction or
// GetOrCreateInstanceAction, which enforce the
// one-action-per-(resource,task,interval,instance) invariant the ordering
// stage depends on to attach predecessors without duplicating work.
package actions
