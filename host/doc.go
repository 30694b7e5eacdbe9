/*
Package host runs a command-line process in the background and exposes its standard input and output to a remote operator over TCP.

The Host starts the process and a console.Server, then relays lines in both directions: everything the process prints is sent to the attached peer (or dropped while nobody is attached), and every line the peer sends is written to the process's stdin. Operators can attach, detach and reattach at any time without affecting the process.

When the host is stopped, or the process exits on its own, the shutdown protocol runs exactly once:

 1. The stop request is propagated, so the relay stops reading from the peer.
 2. If the process has already exited, nothing else is needed.
 3. Otherwise, if a stop command is configured, it is written to the process's stdin and the host waits up to the stop timeout for either the stop message to be printed or the process to exit.
 4. If neither happens in time, or there is no stop command, the process is killed.
 5. The console server and the process's pipes are released and waiters are woken.

Shutdown progress is logged and also sent to the attached peer, prefixed with "[host] ".
*/
package host
