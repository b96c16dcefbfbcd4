// Package manifest renders Kubernetes Pod manifests for CI jobs.
//
// The renderer fills a fixed Pod template with the resolved image, the
// job's resource limits and requests, its node selector and one hostPath
// volume plus matching mount per declared volume:
//
//	volumes:
//	  - {hostPath: /tmp/a, mountPath: /mnt/a}
//
// becomes
//
//	volumeMounts:
//	- mountPath: "/mnt/a"
//	  name: "volume-0"
//	  readOnly: false
//	...
//	volumes:
//	- hostPath:
//	    path: "/tmp/a"
//	  name: "volume-0"
//
// # Output
//
// Blank and whitespace-only lines are removed from the rendered text, so
// optional sections collapse without leaving gaps. Documents can be written
// to any io.Writer or atomically to a file, and checked with Verify before
// they are handed to kubectl.
package manifest
