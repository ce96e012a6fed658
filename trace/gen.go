package trace

import (
	"math"
	"math/rand"
	"strconv"
)

// SameKey generates n requests for the same key.
func SameKey(n int64, key string, value int64) []Request {
	requests := make([]Request, 0, n)
	for i := int64(0); i < n; i++ {
		requests = append(requests, Request{Key: key, Value: value})
	}
	return requests
}

// Cycle generates n requests cycling through keys 0..k-1. k == n yields
// all unique keys.
func Cycle(n, k, value int64) []Request {
	requests := make([]Request, 0, n)
	for i := int64(0); i < n; i++ {
		requests = append(requests, Request{
			Key:   strconv.FormatInt(i%k, 10),
			Value: value,
		})
	}
	return requests
}

// Normal generates n requests whose keys follow a normal distribution
// rounded to the nearest integer.
func Normal(n int64, mean, stddev float64, value, seed int64) []Request {
	r := rand.New(rand.NewSource(seed))
	requests := make([]Request, 0, n)
	for i := int64(0); i < n; i++ {
		k := int64(math.Round(r.NormFloat64()*stddev + mean))
		requests = append(requests, Request{
			Key:   strconv.FormatInt(k, 10),
			Value: value,
		})
	}
	return requests
}

// Poisson generates n requests whose keys follow a Poisson distribution
// with the given mean.
func Poisson(n int64, mean float64, value, seed int64) []Request {
	r := rand.New(rand.NewSource(seed))
	requests := make([]Request, 0, n)
	for i := int64(0); i < n; i++ {
		requests = append(requests, Request{
			Key:   strconv.FormatInt(poisson(r, mean), 10),
			Value: value,
		})
	}
	return requests
}

// poisson draws by Knuth's product method. Fine for the means traces
// use; large means would want the rejection method instead.
func poisson(r *rand.Rand, mean float64) int64 {
	l := math.Exp(-mean)
	var k int64
	p := 1.0
	for {
		k++
		p *= r.Float64()
		if p <= l {
			return k - 1
		}
	}
}

// Zipfian generates n requests with keys 1..k following a Zipfian
// distribution with exponent alpha.
func Zipfian(n, k int64, alpha float64, value, seed int64) []Request {
	z := NewZipf(k, alpha, seed)
	requests := make([]Request, 0, n)
	for i := int64(0); i < n; i++ {
		requests = append(requests, Request{
			Key:   strconv.FormatInt(z.Gen(), 10),
			Value: value,
		})
	}
	return requests
}

// Zipf draws ranks in [1, n] with probability proportional to
// rank^-alpha. Unlike the standard library's generator it accepts any
// alpha > 0, including the alpha <= 1 range real workloads sit in, by
// inverting a precomputed CDF.
type Zipf struct {
	sumProbs []float64
	r        *rand.Rand
}

// NewZipf builds the CDF table for ranks [1, n].
func NewZipf(n int64, alpha float64, seed int64) *Zipf {
	c := 0.0
	for i := int64(1); i <= n; i++ {
		c += 1.0 / math.Pow(float64(i), alpha)
	}
	c = 1.0 / c

	sumProbs := make([]float64, n+1)
	for i := int64(1); i <= n; i++ {
		sumProbs[i] = sumProbs[i-1] + c/math.Pow(float64(i), alpha)
	}
	return &Zipf{
		sumProbs: sumProbs,
		r:        rand.New(rand.NewSource(seed)),
	}
}

// Gen draws the next rank.
func (z *Zipf) Gen() int64 {
	var zv float64
	for zv == 0 || zv == 1 {
		zv = z.r.Float64()
	}

	low, high := int64(1), int64(len(z.sumProbs)-1)
	for low <= high {
		mid := (low + high) / 2
		if z.sumProbs[mid] >= zv && z.sumProbs[mid-1] < zv {
			return mid
		} else if z.sumProbs[mid] >= zv {
			high = mid - 1
		} else {
			low = mid + 1
		}
	}
	return 0
}
