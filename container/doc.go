// Package container is an embeddable runtime core that creates and
// supervises isolated Linux processes.
//
// # Overview
//
// A Registry owns every container of the embedding application. The caller
// hands it a fully resolved Spec (entry command, namespace set, rootfs
// descriptor, limits); the Registry drives the container through
// Created -> Running -> Stopped -> Destroyed and reports transitions on an
// event channel. Rootfs provisioning, namespace creation, resource limit
// groups and process supervision are sequenced by an undo list so that a
// failure in any start step reverses the completed ones.
//
// The container init process is the current executable re-executed with
// a reserved argv, so the embedding application must call Init at the very
// top of its main:
//
//	func main() {
//		container.Init()
//		// regular startup
//	}
//
// Init returns immediately in a normal process and never returns in a
// re-executed init.
//
// # Init protocol
//
// Host and init process share three inherited pipes:
//
//   - fd 3 (config): host sends the gob encoded init configuration
//   - fd 4 (status): init reports the setup step result, gob encoded
//   - fd 5 (gate): host releases the gate once the init pid is attached to
//     its resource limit group; only then does init execute the entry
//     command
//
// Init performs the in-namespace half of the setup: it makes the mount tree
// private, mounts the pseudo filesystems and caller binds, pivots into the
// provisioned rootfs, sets the hostname, applies rlimits and verifies the
// entry binary is executable, then loads the seccomp policy and execs the
// entry command in place. The entry is therefore pid 1 of the pid namespace
// and the process the supervisor waits on; a signalled exit is recorded as
// 128 plus the signal number.
//
// Exec reuses the same re-exec mechanism with a second reserved argv: a
// helper process joins the namespaces of a running container's init and
// runs an auxiliary command inside them, relaying its exit code and output.
package container
