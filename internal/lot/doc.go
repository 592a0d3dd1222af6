// Package lot implements the concurrent capacity pool at the heart of
// parkd: a fixed number of spaces allocated to vehicles by plate, with
// blocking admission, time-based fees on release, and snapshot
// persistence after every mutation.
package lot
