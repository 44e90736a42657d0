// Package enhance drives the external Real-ESRGAN tooling that upscales an
// original image into its enhanced artifact.
//
// This package is an infrastructure adapter: it shells out to a Python
// interpreter and knows nothing about job identities or the registry.
//
// Key components:
//
// 1. CommandRunner:
//   - Runs an external program and captures stdout and stderr
//   - Replaced by a stub in tests so no Python is needed
//
// 2. Provisioner:
//   - Checks that the realesrgan module can be imported
//   - Installs the packages with pip when allowed, at most once after success
//
// 3. Enhancer:
//   - Writes the embedded enhancement script to a temporary file
//   - Runs it under a per-run deadline and verifies the output exists
//   - Maps failures onto the domain's external operation errors
package enhance
