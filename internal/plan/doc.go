/*
Package plan computes the connection set of a linear chain.

Given the chain's external input, its external output and the ordered stages
(one input port and one output port per module), Compute produces a Plan:

 1. the external input feeds the first stage, or the external output directly
    when there are no stages;
 2. each stage output feeds the next stage input;
 3. the last stage output feeds the external output.

The plan also lists the ports whose outgoing connections must be severed
before the new edges are made: the external input and every stage output.
Apply performs that sequence on a routing.Substrate.

Compute is pure. A stage with a missing port is not ready and yields
ErrNotReady rather than a partial plan; a missing boundary yields
ErrNoBoundary. Both are signals to skip replanning, not failures.
*/
package plan
