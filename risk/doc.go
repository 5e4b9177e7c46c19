/*
Package risk scores the declared configuration of a task network and maps
the score to the economic requirements (fees, stake, delays, slashing) the
network creator has to meet.
*/
package risk
