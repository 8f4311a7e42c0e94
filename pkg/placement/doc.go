// Package placement computes, for every resource in a working set, which
// node (or nodes, for clones) it should run on this pass. It folds together
// location scores (including evaluated rules), stickiness toward the node a
// resource is already running on, colocation propagation between
// dependent/primary pairs, and clone/promotable-clone node-count and
// promoted-count limits.
//
// Placement never talks to a node or executes anything — it only produces
// an AllocatedNode (and, for clones, a set of running-node assignments plus
// role upgrades) that pkg/actions turns into concrete start/stop/promote
// actions.
package placement
