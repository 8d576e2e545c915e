// Package module defines the uniform contract every chain member satisfies,
// leaf effects and nested containers alike, and the lifecycle state machine
// shared by their implementations.
//
// A module is Pending until its ports exist, Ready once they do, then Active
// or Bypassed. Removed is terminal: a module removed while still Pending never
// becomes Ready, and the code that was initialising it must discard whatever
// it created.
package module
