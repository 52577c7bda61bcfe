package session

// DefaultSourceCode is the visual a session starts with: the camera feed
// colour-cycled, noise-modulated and layered with a thresholded oscillator.
const DefaultSourceCode = `// Camera source comes from s0.
src(s0)
  .colorama(() => 0.002 + Math.sin(time * 0.4) * 0.002)
  .modulate(noise(4, 0.1), 0.07)
  .layer(
    osc(16, 0.02, 0.7)
      .thresh(0.65)
      .color(0.2, 0.9, 0.8)
      .luma(0.3)
  )
  .out(o0)

render(o0)`
