package dashboard

// SampleCSV is the built-in demonstration data set.
const SampleCSV = `StudentID,Name,Department,Total_Classes,Attended_Classes
101,Amit Kumar,MCA,30,28
102,Priya Sharma,MCA,30,24
103,Rahul Verma,B.Tech,30,18
104,Sneha Gupta,MCA,30,30
105,Rohan Singh,B.Tech,30,21
106,Neha Yadav,BCA,30,29
107,Arjun Mehta,B.Tech,30,22
108,Kriti Patel,MCA,30,26
109,Vikram Chauhan,BCA,30,20
110,Simran Kaur,B.Tech,30,27`
