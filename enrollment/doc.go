/*
Package enrollment defines the enrollment state engine types, the backend
capability contract, and the pure step derivation.

# Course runs and backends

A course run is a scheduled session of a course. It carries a resource
link (a URL) that identifies the session on a remote learning platform,
called a backend. Backends own the enrollment records of the course runs
whose resource links they claim. A backend is driven through the small
Capability interface: get a record, set a record active or inactive,
project a record into an enrollment flag, and tell whether learners can
be unenrolled programmatically at all.

# Facts

The engine works from facts that arrive asynchronously: the current user
and the enrollment flag. A Fact is either unresolved (not yet known),
null (known to be absent, e.g. an anonymous user or a missing record) or
known with a value. An unresolved enrollment flag always means "unknown"
and is never treated as "not enrolled" by the derivation.

# Steps

The UI-facing state is a single Step. StepFromContext derives it from the
Context and the previous Step with an ordered list of rules where the
first matching rule wins. The previous Step only matters to resolve the
in-flight Enrolling and Unenrolling markers into their success or failure
outcomes.

# Errors

Transport and HTTP failures from backends surface as NetworkError and
HTTPError. Failures of the initial fetch are wrapped in FetchError and
failures of an enroll or unenroll attempt in ActionError. A derivation
that matches no rule yields an ImpossibleStateError. Errors are reported
through an ErrorHandler that is always injected by the caller.
*/
package enrollment
