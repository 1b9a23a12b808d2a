// Command fetchd runs the media download queue daemon and provides the
// companion CLI for inspecting and managing the queue.
package main
