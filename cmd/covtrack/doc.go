// Covtrack reports LCOV coverage on GitHub pull requests and pushes and keeps
// a per-branch coverage history in a tracking repository.
//
// Usage:
//
//	covtrack coverage pull-request --lcov lcov.info --pr 12 --commit <sha>
//	covtrack coverage push --lcov lcov.info --commit <sha>
//	covtrack coverage push-with-report --lcov lcov.info --branch main \
//	    --coverage-repo acme/coverage --team Security
//	covtrack tracking rebuild --records ./records --repo acme/svc --branch main
//	covtrack tracking remove-branch --repo acme/svc --branch old-feature
//	covtrack local --lcov lcov.info --base origin/main
//
// Exit codes: 0 success, 1 coverage below --fail-under, 2 usage error,
// 3 authentication error, 4 runtime error.
package main
